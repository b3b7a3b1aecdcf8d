package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
	chatservice "github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
)

const (
	// EmptyReplyFallback is spoken when the backend succeeds with no text.
	EmptyReplyFallback = "I'm here with you. Take your time."
	// SoftFailureReply is spoken when the backend fails.
	SoftFailureReply = "I'm just resting for a moment. We're in no rush."

	maxRetryDelay = 2 * time.Second
)

var (
	ErrNotConfigured     = errors.New("generation backend not configured")
	errMalformedResponse = errors.New("malformed backend response")
)

// Backend is a single-shot text completion service.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

func (f BackendFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SoftFailure reports that the backend failed and the returned reply is the
// calm fallback phrase.
type SoftFailure struct {
	Err error
}

func (e *SoftFailure) Error() string {
	return "generation soft failure: " + e.Err.Error()
}

func (e *SoftFailure) Unwrap() error {
	return e.Err
}

// IsSoftFailure reports whether err carries a SoftFailure.
func IsSoftFailure(err error) bool {
	var sf *SoftFailure
	return errors.As(err, &sf)
}

// Options tune the generation call.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	Now            func() time.Time
}

// Service turns user utterances into companion replies.
type Service struct {
	backend  Backend
	composer *PromptComposer
	opts     Options
}

// NewService creates the response generator. A nil backend is allowed: every
// Reply then fails with ErrNotConfigured.
func NewService(backend Backend, composer *PromptComposer, opts Options) *Service {
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 300 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		backend:  backend,
		composer: composer,
		opts:     opts,
	}
}

// Enabled reports whether a backend is wired.
func (s *Service) Enabled() bool {
	return s != nil && s.backend != nil
}

// Reply appends utterance to window as a user turn, asks the backend for an
// answer and records it as an assistant turn.
//
// On backend failure nothing is recorded, SoftFailureReply is returned as the
// reply and err is a *SoftFailure. Without a backend the reply is empty and
// err is ErrNotConfigured.
func (s *Service) Reply(ctx context.Context, profile chat.Profile, window *chatservice.Window, utterance string) (string, error) {
	window.Append(chat.RoleUser, utterance)

	if !s.Enabled() {
		return "", ErrNotConfigured
	}

	prompt := s.composer.Compose(profile, window, s.opts.Now())

	start := time.Now()
	text, err := s.complete(ctx, prompt)
	if err != nil {
		log.WithFields(log.Fields{
			"elapsed_ms": time.Since(start).Milliseconds(),
		}).Warnf("[ai] generation failed, using fallback: %v", err)
		return SoftFailureReply, &SoftFailure{Err: err}
	}

	reply := strings.TrimSpace(text)
	if reply == "" {
		reply = EmptyReplyFallback
	}
	window.Append(chat.RoleAssistant, reply)

	log.WithFields(log.Fields{
		"prompt_chars": len(prompt),
		"reply_chars":  len(reply),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	}).Debug("[ai] generated reply")
	return reply, nil
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	backoff := retry.NewExponential(s.opts.RetryBaseDelay)
	backoff = retry.WithCappedDuration(maxRetryDelay, backoff)
	backoff = retry.WithMaxRetries(uint64(s.opts.MaxRetries), backoff)

	var text string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, err := s.backend.Complete(ctx, prompt)
		if err == nil {
			text = out
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrNotConfigured) {
			return err
		}
		log.Debugf("[ai] backend attempt %d failed: %v", attempt, err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
