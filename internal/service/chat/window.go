package chat

import (
	"iter"
	"strings"
	"sync"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
)

// DefaultWindowLimit bounds how many turns a session keeps for prompting.
const DefaultWindowLimit = 10

// Window is a bounded, ordered history of recent turns. When an append would
// exceed the limit the oldest turns are dropped first.
type Window struct {
	mu    sync.RWMutex
	limit int
	turns []chat.Turn
}

// NewWindow returns an empty window. A non-positive limit selects DefaultWindowLimit.
func NewWindow(limit int) *Window {
	if limit <= 0 {
		limit = DefaultWindowLimit
	}
	return &Window{
		limit: limit,
		turns: make([]chat.Turn, 0, limit+1),
	}
}

// Append pushes a turn. Blank text is ignored.
func (w *Window) Append(role chat.Role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.turns = append(w.turns, chat.Turn{Role: role, Text: text})
	if over := len(w.turns) - w.limit; over > 0 {
		// shift in place so the backing array does not grow without bound
		n := copy(w.turns, w.turns[over:])
		clear(w.turns[n:])
		w.turns = w.turns[:n]
	}
}

// Len reports the number of retained turns.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.turns)
}

// Limit reports the maximum number of retained turns.
func (w *Window) Limit() int {
	return w.limit
}

// Last returns the most recent turn.
func (w *Window) Last() (chat.Turn, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.turns) == 0 {
		return chat.Turn{}, false
	}
	return w.turns[len(w.turns)-1], true
}

// Turns returns a copy of the retained turns, oldest first.
func (w *Window) Turns() []chat.Turn {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]chat.Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

// Lines yields one "Role: text" line per turn, most recent last. Each range
// over the sequence starts again from the oldest retained turn.
func (w *Window) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, turn := range w.Turns() {
			if !yield(turn.Role.Label() + ": " + turn.Text) {
				return
			}
		}
	}
}

// Render joins Lines with newlines for embedding into a prompt.
func (w *Window) Render() string {
	var builder strings.Builder
	first := true
	for line := range w.Lines() {
		if !first {
			builder.WriteString("\n")
		}
		builder.WriteString(line)
		first = false
	}
	return builder.String()
}
