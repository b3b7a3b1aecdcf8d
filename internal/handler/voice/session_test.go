package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/persona"
	protocol "github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/voice"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/ai"
	chatservice "github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []protocol.Outbound
	fail   bool
}

func (c *recordingConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, v.(protocol.Outbound))
	return nil
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordingConn) Frames() []protocol.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Outbound(nil), c.frames...)
}

func (c *recordingConn) Types() []string {
	var types []string
	for _, f := range c.Frames() {
		types = append(types, f.Type)
	}
	return types
}

func newReplier(backend ai.Backend) *ai.Service {
	return ai.NewService(backend, ai.NewPromptComposer(persona.Companion()), ai.Options{
		Timeout:        time.Second,
		RetryBaseDelay: time.Millisecond,
	})
}

func echoBackend() ai.Backend {
	return ai.BackendFunc(func(_ context.Context, prompt string) (string, error) {
		return "How lovely!", nil
	})
}

func newTestSession(t *testing.T, backend ai.Backend, cueDelay time.Duration) (*Session, *recordingConn, *chatservice.Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	info := chatservice.NewRegistry(10).Open("127.0.0.1:1", cancel)
	conn := &recordingConn{}
	session := NewSession(ctx, cancel, info, conn, newReplier(backend), persona.Companion(), Options{
		CueDelay:         cueDelay,
		SignalFrameBytes: 1024,
		InboxSize:        4,
	})
	t.Cleanup(session.Close)
	return session, conn, info
}

func textFrame(data string) inboundFrame {
	return inboundFrame{messageType: websocket.TextMessage, data: []byte(data)}
}

func TestConfigGreetsThenCues(t *testing.T) {
	session, conn, info := newTestSession(t, echoBackend(), 10*time.Millisecond)

	session.handleFrame(textFrame(`{"type":"config","seniorName":"Alice"}`))

	frames := conn.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, protocol.TypeTranscript, frames[0].Type)
	assert.Equal(t, chat.RoleAssistant, frames[0].Role)
	assert.True(t, strings.HasPrefix(frames[0].Text, "Hello, Alice!"), frames[0].Text)
	assert.Equal(t, protocol.TypeSpeaking, frames[1].Type)
	assert.Equal(t, StateListening, session.State())

	last, ok := info.Window.Last()
	require.True(t, ok)
	assert.Equal(t, frames[0].Text, last.Text)

	require.Eventually(t, func() bool {
		return len(conn.Frames()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, protocol.TypeListening, conn.Frames()[2].Type)
}

func TestConfigReplacesWholeProfile(t *testing.T) {
	session, _, info := newTestSession(t, echoBackend(), time.Hour)

	session.handleFrame(textFrame(`{"type":"config","seniorName":"Alice","gifterName":"Bob","bioContext":"Loves roses"}`))
	require.Equal(t, "Loves roses", info.Profile.BioContext)

	session.handleFrame(textFrame(`{"type":"config","seniorName":"Alice"}`))
	assert.Equal(t, chat.NewProfile("Alice", "", ""), info.Profile)
	assert.Equal(t, chat.DefaultGifterName, info.Profile.GifterName)
	assert.Empty(t, info.Profile.BioContext)
}

func TestTextRoundTrip(t *testing.T) {
	session, conn, info := newTestSession(t, echoBackend(), 10*time.Millisecond)

	session.handleFrame(textFrame(`{"type":"text","text":"I baked bread"}`))

	assert.Equal(t, []string{protocol.TypeSpeaking, protocol.TypeTranscript}, conn.Types())
	assert.Equal(t, "How lovely!", conn.Frames()[1].Text)
	assert.Equal(t, StateListening, session.State())

	turns := info.Window.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, chat.Turn{Role: chat.RoleUser, Text: "I baked bread"}, turns[0])
	assert.Equal(t, chat.Turn{Role: chat.RoleAssistant, Text: "How lovely!"}, turns[1])

	require.Eventually(t, func() bool {
		types := conn.Types()
		return len(types) == 3 && types[2] == protocol.TypeListening
	}, time.Second, 5*time.Millisecond)
}

func TestBackendFailureSpeaksFallback(t *testing.T) {
	session, conn, info := newTestSession(t, ai.BackendFunc(func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}), time.Hour)

	session.handleFrame(textFrame(`{"type":"text","text":"hello"}`))

	frames := conn.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, protocol.TypeTranscript, frames[1].Type)
	assert.Equal(t, ai.SoftFailureReply, frames[1].Text)
	assert.Equal(t, StateListening, session.State())
	assert.Equal(t, 1, info.Window.Len())
}

func TestNotConfiguredSendsError(t *testing.T) {
	session, conn, _ := newTestSession(t, nil, time.Hour)

	session.handleFrame(textFrame(`{"type":"text","text":"hello"}`))

	frames := conn.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, protocol.TypeSpeaking, frames[0].Type)
	assert.Equal(t, protocol.Error(protocol.MessageProcessingError), frames[1])
	assert.Equal(t, StateErrored, session.State())

	session.handleFrame(textFrame(`{"type":"config","seniorName":"Alice"}`))
	assert.Equal(t, StateListening, session.State())
}

func TestBlankTextOnlyRearmsListening(t *testing.T) {
	var calls atomic.Int32
	session, conn, info := newTestSession(t, ai.BackendFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "unused", nil
	}), time.Hour)

	session.handleFrame(textFrame(`{"type":"text","text":"   "}`))

	assert.Equal(t, []string{protocol.TypeListening}, conn.Types())
	assert.Zero(t, calls.Load())
	assert.Zero(t, info.Window.Len())
}

func TestProtocolErrorKeepsSession(t *testing.T) {
	session, conn, _ := newTestSession(t, echoBackend(), time.Hour)

	session.handleFrame(textFrame(`{"type":"dance"}`))
	session.handleFrame(textFrame(`not json`))

	assert.Equal(t, []protocol.Outbound{
		protocol.Error(protocol.MessageProcessingError),
		protocol.Error(protocol.MessageProcessingError),
	}, conn.Frames())
	assert.Equal(t, StateAwaitingConfig, session.State())

	session.handleFrame(textFrame(`{"type":"text","text":"still there?"}`))
	assert.Equal(t, "How lovely!", conn.Frames()[3].Text)
}

func TestBinaryFrames(t *testing.T) {
	session, conn, _ := newTestSession(t, echoBackend(), time.Hour)

	session.handleFrame(inboundFrame{messageType: websocket.BinaryMessage, data: make([]byte, 4096)})
	session.handleFrame(inboundFrame{messageType: websocket.BinaryMessage, data: []byte{0x1, 0x2, 0x3}})
	assert.Equal(t, []string{protocol.TypeListening, protocol.TypeListening}, conn.Types())

	session.handleFrame(inboundFrame{messageType: websocket.BinaryMessage, data: []byte(`{"type":"config","seniorName":"Alice"}`)})
	types := conn.Types()
	require.Len(t, types, 4)
	assert.Equal(t, protocol.TypeTranscript, types[2])
}

func TestSpeakingSupersedesPendingCue(t *testing.T) {
	session, conn, _ := newTestSession(t, echoBackend(), 40*time.Millisecond)

	session.handleFrame(textFrame(`{"type":"config","seniorName":"Alice"}`))
	session.handleFrame(textFrame(`{"type":"text","text":"hi"}`))

	require.Eventually(t, func() bool {
		return len(conn.Types()) == 5
	}, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, []string{
		protocol.TypeTranscript,
		protocol.TypeSpeaking,
		protocol.TypeSpeaking,
		protocol.TypeTranscript,
		protocol.TypeListening,
	}, conn.Types())
}

func TestCloseStopsPendingCues(t *testing.T) {
	session, conn, _ := newTestSession(t, echoBackend(), 20*time.Millisecond)

	session.handleFrame(textFrame(`{"type":"config","seniorName":"Alice"}`))
	session.Close()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, []string{protocol.TypeTranscript, protocol.TypeSpeaking}, conn.Types())
	assert.Equal(t, StateClosed, session.State())
	assert.False(t, session.send(protocol.Listening()))
}

func TestWriteFailureCancelsSession(t *testing.T) {
	session, conn, _ := newTestSession(t, echoBackend(), time.Hour)
	conn.fail = true

	session.handleFrame(textFrame(`{"type":"config"}`))

	select {
	case <-session.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected session context to be cancelled")
	}
}

func TestRunProcessesInOrder(t *testing.T) {
	session, conn, _ := newTestSession(t, ai.BackendFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.HasSuffix(strings.TrimSuffix(prompt, "\nAssistant:"), "User: first") {
			time.Sleep(30 * time.Millisecond)
			return "reply one", nil
		}
		return "reply two", nil
	}), time.Hour)
	go session.Run()

	require.True(t, session.Enqueue(websocket.TextMessage, []byte(`{"type":"text","text":"first"}`)))
	require.True(t, session.Enqueue(websocket.TextMessage, []byte(`{"type":"text","text":"second"}`)))

	require.Eventually(t, func() bool {
		return len(conn.Frames()) == 4
	}, time.Second, 5*time.Millisecond)

	frames := conn.Frames()
	assert.Equal(t, "reply one", frames[1].Text)
	assert.Equal(t, "reply two", frames[3].Text)

	session.Close()
	select {
	case <-session.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestEnqueueOverflowSendsBusy(t *testing.T) {
	session, conn, _ := newTestSession(t, echoBackend(), time.Hour)

	// No worker is running, so the inbox fills up.
	for i := 0; i < 4; i++ {
		require.True(t, session.Enqueue(websocket.TextMessage, []byte(`{"type":"text","text":"hi"}`)))
	}
	assert.False(t, session.Enqueue(websocket.TextMessage, []byte(`{"type":"text","text":"hi"}`)))
	assert.Equal(t, []protocol.Outbound{protocol.Error(protocol.MessageBusy)}, conn.Frames())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_config", StateAwaitingConfig.String())
	assert.Equal(t, "generating", StateGenerating.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
