package dto

type ChatRequest struct {
	Query string `json:"query" validate:"max=8000"`
	// History, when set, replaces the server-side session as prompt history.
	History   string `json:"history,omitempty" validate:"max=20000"`
	SessionId string `json:"session_id,omitempty" validate:"omitempty,max=64"`
}

type SourceDTO struct {
	Id       string            `json:"id"`
	Text     string            `json:"text"`
	SourceId string            `json:"source_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

type ChatResponse struct {
	SessionId string      `json:"session_id"`
	Response  string      `json:"response"`
	Sources   []SourceDTO `json:"sources"`
}
