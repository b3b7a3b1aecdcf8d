package chat

import "strings"

const (
	DefaultSeniorName = "Friend"
	DefaultGifterName = "Someone who loves you"
)

// Profile holds the per-session attributes supplied by the config frame.
type Profile struct {
	SeniorName string `json:"seniorName"`
	GifterName string `json:"gifterName"`
	BioContext string `json:"bioContext"`
}

// DefaultProfile returns the attributes a session starts with.
func DefaultProfile() Profile {
	return Profile{
		SeniorName: DefaultSeniorName,
		GifterName: DefaultGifterName,
	}
}

// NewProfile builds a profile from raw config values. Blank values fall back
// to the defaults rather than to anything previously configured.
func NewProfile(seniorName, gifterName, bioContext string) Profile {
	p := DefaultProfile()
	if v := strings.TrimSpace(seniorName); v != "" {
		p.SeniorName = v
	}
	if v := strings.TrimSpace(gifterName); v != "" {
		p.GifterName = v
	}
	p.BioContext = strings.TrimSpace(bioContext)
	return p
}
