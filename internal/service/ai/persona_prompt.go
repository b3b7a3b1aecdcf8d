package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/persona"
	chatservice "github.com/lilhelper-coder/Asset-Architect-sub000/internal/service/chat"
)

// SeasonWindow is an inclusive calendar range that may wrap around the new year.
type SeasonWindow struct {
	StartMonth time.Month
	StartDay   int
	EndMonth   time.Month
	EndDay     int
}

// HolidaySeason covers Dec 20 through Jan 5.
var HolidaySeason = SeasonWindow{StartMonth: time.December, StartDay: 20, EndMonth: time.January, EndDay: 5}

// Contains reports whether t, taken in the server's local time zone, falls inside the window.
func (w SeasonWindow) Contains(t time.Time) bool {
	local := t.In(time.Local)
	day := monthDay(local.Month(), local.Day())
	start := monthDay(w.StartMonth, w.StartDay)
	end := monthDay(w.EndMonth, w.EndDay)
	if start <= end {
		return day >= start && day <= end
	}
	return day >= start || day <= end
}

func monthDay(m time.Month, d int) int {
	return int(m)*100 + d
}

// InSeason reports whether the holiday clause applies on the given date.
func InSeason(now time.Time) bool {
	return HolidaySeason.Contains(now)
}

const (
	seasonalClause = "It is the holiday season right now. You may warmly mention the holidays or the new year " +
		"if it fits the conversation, without assuming how or whether the person celebrates."
	conversationHeader = "Conversation so far:"
	assistantCue       = "Assistant:"
)

// PromptComposer builds single-blob prompts for the companion persona.
type PromptComposer struct {
	persona persona.Persona
	season  SeasonWindow
}

// NewPromptComposer creates a composer for the given persona.
func NewPromptComposer(p persona.Persona) *PromptComposer {
	return &PromptComposer{persona: p, season: HolidaySeason}
}

// SystemPrompt returns the persona block followed by the optional biography
// and seasonal clauses.
func (pc *PromptComposer) SystemPrompt(profile chat.Profile, now time.Time) string {
	var builder strings.Builder
	builder.WriteString(pc.personaBlock())

	if bio := strings.TrimSpace(profile.BioContext); bio != "" {
		builder.WriteString("\n\nAbout the person you are talking with (shared by someone who cares about them):\n")
		builder.WriteString(bio)
		builder.WriteString("\nWeave this in naturally and gently. Never recite it back word for word.")
	}

	if pc.season.Contains(now) {
		builder.WriteString("\n\n")
		builder.WriteString(seasonalClause)
	}

	return builder.String()
}

// Compose returns the full prompt: system prompt, the rendered conversation
// window and a trailing assistant cue.
func (pc *PromptComposer) Compose(profile chat.Profile, window *chatservice.Window, now time.Time) string {
	var builder strings.Builder
	builder.WriteString(pc.SystemPrompt(profile, now))
	builder.WriteString("\n\n")
	builder.WriteString(conversationHeader)
	if window != nil {
		if rendered := window.Render(); rendered != "" {
			builder.WriteString("\n")
			builder.WriteString(rendered)
		}
	}
	builder.WriteString("\n")
	builder.WriteString(assistantCue)
	return builder.String()
}

func (pc *PromptComposer) personaBlock() string {
	p := pc.persona

	var subs strings.Builder
	for _, s := range p.Substitutions {
		subs.WriteString(fmt.Sprintf("\n- instead of %q say %q", s.Forbidden, s.Replacement))
	}

	return fmt.Sprintf(`You are %s, %s.

Tone: %s.
Personality: %s.

How you speak:
%s

Safety:
%s

Vocabulary rule: never use the phrases below. Always use the replacement instead.%s

Reply with the words you would say out loud and nothing else.`,
		p.Name,
		p.Title,
		p.Tone,
		strings.Join(p.Traits, ", "),
		p.SpeechRegister,
		p.SafetyStance,
		subs.String(),
	)
}
