package store

import "time"

// Speaker identifies who produced a Turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one message in the conversation log.
type Turn struct {
	Speaker  Speaker      `json:"speaker"`
	Text     string       `json:"text"`
	Sources  []PassageRef `json:"sources,omitempty"`
	Occurred time.Time    `json:"occurred_at"`
}

// Exchange pairs a user query with the assistant reply it produced.
// Session bounds are counted in exchanges.
type Exchange struct {
	Query Turn `json:"query"`
	Reply Turn `json:"reply"`
}

// SessionSnapshot is a consistent, detached copy of a session's state.
type SessionSnapshot struct {
	ID            string   `json:"id"`
	Turns         []Turn   `json:"turns"`
	RecentEntries []string `json:"recent_entries"`
}

// SituationalContext carries the facts about "here and now" injected into prompts.
type SituationalContext struct {
	CurrentDate    string `json:"current_date"`
	LocationName   string `json:"location_name"`
	WeatherSummary string `json:"weather_summary"`
}
