package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/persona"
	protocol "github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/voice"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/ai"
	chatservice "github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
)

const writeWait = 10 * time.Second

// State is the conversational state of a session.
type State int

const (
	StateAwaitingConfig State = iota
	StateGreeting
	StateListening
	StateGenerating
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingConfig:
		return "awaiting_config"
	case StateGreeting:
		return "greeting"
	case StateListening:
		return "listening"
	case StateGenerating:
		return "generating"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Replier produces the companion reply for one user utterance.
type Replier interface {
	Reply(ctx context.Context, profile chat.Profile, window *chatservice.Window, utterance string) (string, error)
}

// Conn is the write side of a client connection.
type Conn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
}

// Options configure session behaviour.
type Options struct {
	CueDelay         time.Duration
	SignalFrameBytes int
	InboxSize        int
}

type inboundFrame struct {
	messageType int
	data        []byte
}

// Session drives one voice connection: it decodes client frames, calls the
// generator and choreographs the speaking/listening cues.
type Session struct {
	info    *chatservice.Session
	conn    Conn
	replier Replier
	persona persona.Persona
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	inbox chan inboundFrame
	done  chan struct{}
	cues  cueTimer

	writeMu sync.Mutex
	closed  bool

	stateMu sync.RWMutex
	state   State

	closeOnce sync.Once
}

// NewSession wires a session to its connection. cancel must cancel ctx.
func NewSession(ctx context.Context, cancel context.CancelFunc, info *chatservice.Session, conn Conn, replier Replier, p persona.Persona, opts Options) *Session {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 16
	}
	return &Session{
		info:    info,
		conn:    conn,
		replier: replier,
		persona: p,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		inbox:   make(chan inboundFrame, opts.InboxSize),
		done:    make(chan struct{}),
		state:   StateAwaitingConfig,
	}
}

// ID returns the registry identifier of the session.
func (s *Session) ID() string {
	return s.info.ID
}

// State returns the current state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state == StateClosed {
		return
	}
	if s.state != next {
		log.WithFields(log.Fields{"session": s.info.ID, "from": s.state, "to": next}).Debug("[voice] state change")
	}
	s.state = next
}

// Run processes queued frames in arrival order until the session closes.
func (s *Session) Run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case frame := <-s.inbox:
			s.handleFrame(frame)
		}
	}
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Enqueue hands a raw client frame to the session worker. When the inbox is
// full the frame is dropped and the client is told to wait.
func (s *Session) Enqueue(messageType int, data []byte) bool {
	select {
	case s.inbox <- inboundFrame{messageType: messageType, data: data}:
		return true
	default:
		log.WithFields(log.Fields{"session": s.info.ID, "bytes": len(data)}).Warn("[voice] inbox full, dropping frame")
		s.send(protocol.Error(protocol.MessageBusy))
		return false
	}
}

// Close tears the session down. Pending cues are stopped and nothing is
// written afterwards. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.closed = true
		s.writeMu.Unlock()

		s.cues.Stop()
		s.cancel()

		s.stateMu.Lock()
		s.state = StateClosed
		s.stateMu.Unlock()
	})
}

func (s *Session) handleFrame(frame inboundFrame) {
	switch frame.messageType {
	case websocket.TextMessage:
		msg, err := protocol.Decode(frame.data)
		if err != nil {
			s.protocolError(err)
			return
		}
		s.dispatch(msg)
	case websocket.BinaryMessage:
		if len(frame.data) < s.opts.SignalFrameBytes {
			if msg, err := protocol.Decode(frame.data); err == nil {
				s.dispatch(msg)
				return
			}
		}
		s.handleAudio(frame.data)
	}
}

func (s *Session) dispatch(msg protocol.Inbound) {
	switch m := msg.(type) {
	case protocol.ConfigMessage:
		s.handleConfig(m)
	case protocol.TextMessage:
		s.handleText(m.Text)
	}
}

func (s *Session) protocolError(err error) {
	log.WithFields(log.Fields{"session": s.info.ID}).Warnf("[voice] rejected frame: %v", err)
	s.send(protocol.Error(protocol.MessageProcessingError))
}

func (s *Session) handleAudio(data []byte) {
	log.WithFields(log.Fields{"session": s.info.ID, "bytes": len(data)}).Info("[voice] received audio frame")
	s.send(protocol.Listening())
}

func (s *Session) handleConfig(msg protocol.ConfigMessage) {
	s.setState(StateGreeting)

	s.info.Profile = msg.Profile()
	greeting := s.persona.Greeting(s.info.Profile.SeniorName)
	s.info.Window.Append(chat.RoleAssistant, greeting)

	log.WithFields(log.Fields{
		"session": s.info.ID,
		"has_bio": s.info.Profile.BioContext != "",
	}).Infof("[voice] config applied for %s", s.info.Profile.SeniorName)

	s.send(protocol.Transcript(chat.RoleAssistant, greeting))
	s.speak()
	s.scheduleListening()
	s.setState(StateListening)
}

func (s *Session) handleText(text string) {
	utterance := strings.TrimSpace(text)
	if utterance == "" {
		s.send(protocol.Listening())
		return
	}

	s.speak()
	s.setState(StateGenerating)

	// A closed connection does not abort the call; its result is dropped on send.
	reply, err := s.replier.Reply(context.WithoutCancel(s.ctx), s.info.Profile, s.info.Window, utterance)
	if err != nil && !ai.IsSoftFailure(err) {
		fields := log.Fields{"session": s.info.ID}
		if errors.Is(err, ai.ErrNotConfigured) {
			log.WithFields(fields).Error("[voice] generation backend not configured")
		} else {
			log.WithFields(fields).Errorf("[voice] reply failed: %v", err)
		}
		s.send(protocol.Error(protocol.MessageProcessingError))
		s.setState(StateErrored)
		return
	}

	s.send(protocol.Transcript(chat.RoleAssistant, reply))
	s.scheduleListening()
	s.setState(StateListening)
}

// speak sends the speaking cue, superseding any pending listening cue.
func (s *Session) speak() {
	s.cues.Cancel()
	s.send(protocol.Speaking())
}

func (s *Session) scheduleListening() {
	s.cues.Schedule(s.opts.CueDelay, func() {
		s.send(protocol.Listening())
	})
}

// send writes one frame unless the session is closed. Write failures close
// the session.
func (s *Session) send(frame protocol.Outbound) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return false
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(frame); err != nil {
		log.WithFields(log.Fields{"session": s.info.ID, "type": frame.Type}).Debugf("[voice] write failed: %v", err)
		s.closed = true
		s.cancel()
		return false
	}
	return true
}
