package dto

import "time"

type TurnDTO struct {
	Speaker  string      `json:"speaker"`
	Text     string      `json:"text"`
	Sources  []SourceDTO `json:"sources,omitempty"`
	Occurred time.Time   `json:"occurred_at"`
}

type SessionResponse struct {
	SessionId     string    `json:"session_id"`
	Limit         int       `json:"limit"`
	Turns         []TurnDTO `json:"turns"`
	RecentEntries []string  `json:"recent_entries"`
}

type PopEntryResponse struct {
	Removed string `json:"removed"`
}
