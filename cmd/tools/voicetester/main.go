package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	protocol "github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/voice"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	url := flag.String("url", defaultURL(), "voice endpoint")
	name := flag.String("name", "", "senior name sent in the config frame")
	gifter := flag.String("gifter", "", "gifter name sent in the config frame")
	bio := flag.String("bio", "", "biography sent in the config frame")
	text := flag.String("text", "", "send one transcript and exit after the reply; reads stdin lines when empty")
	audio := flag.Int("audio", 0, "send a binary frame of this many bytes after config")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for a reply in -text mode")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", *url, err)
	}
	defer conn.Close()
	log.Printf("connected to %s", *url)

	replies := make(chan protocol.Outbound, 16)
	go readFrames(conn, replies)

	config := map[string]string{
		"type":       protocol.TypeConfig,
		"seniorName": *name,
		"gifterName": *gifter,
		"bioContext": *bio,
	}
	if err := conn.WriteJSON(config); err != nil {
		log.Fatalf("send config: %v", err)
	}

	if *audio > 0 {
		if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, *audio)); err != nil {
			log.Fatalf("send audio: %v", err)
		}
	}

	if *text != "" {
		sendText(conn, *text)
		awaitTranscript(replies, *wait)
		return
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-interrupt:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			sendText(conn, line)
		case _, ok := <-replies:
			if !ok {
				return
			}
		}
	}
}

func defaultURL() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}
	if !strings.Contains(port, ":") {
		port = "localhost:" + port
	} else if strings.HasPrefix(port, ":") {
		port = "localhost" + port
	}
	return fmt.Sprintf("ws://%s/api/voice", port)
}

func sendText(conn *websocket.Conn, text string) {
	if err := conn.WriteJSON(map[string]string{"type": protocol.TypeText, "text": text}); err != nil {
		log.Fatalf("send text: %v", err)
	}
}

func readFrames(conn *websocket.Conn, out chan<- protocol.Outbound) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("connection closed: %v", err)
			return
		}
		var frame protocol.Outbound
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("unexpected frame %q", data)
			continue
		}
		printFrame(frame)
		out <- frame
	}
}

func printFrame(frame protocol.Outbound) {
	switch frame.Type {
	case protocol.TypeTranscript:
		fmt.Printf("%s: %s\n", frame.Role.Label(), frame.Text)
	case protocol.TypeError:
		fmt.Printf("[error] %s\n", frame.Message)
	default:
		fmt.Printf("[%s]\n", frame.Type)
	}
}

// awaitTranscript waits for the reply to the transcript sent after the greeting.
func awaitTranscript(replies <-chan protocol.Outbound, wait time.Duration) {
	timeout := time.After(wait)
	seen := 0
	for {
		select {
		case frame, ok := <-replies:
			if !ok {
				return
			}
			if frame.Type == protocol.TypeError {
				os.Exit(1)
			}
			if frame.Type == protocol.TypeTranscript {
				seen++
				if seen == 2 {
					return
				}
			}
		case <-timeout:
			log.Fatalf("no reply within %s", wait)
		}
	}
}
