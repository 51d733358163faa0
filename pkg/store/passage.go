package store

// Passage is an immutable chunk of indexed source text and its embedding.
type Passage struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"embedding"`
	SourceID  string            `json:"source_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Ref returns the lightweight reference stored on conversation turns.
func (p Passage) Ref() PassageRef {
	return PassageRef{ID: p.ID, SourceID: p.SourceID, Text: p.Text}
}

// PassageRef points at a Passage without carrying its embedding.
type PassageRef struct {
	ID       string  `json:"id"`
	SourceID string  `json:"source_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score,omitempty"`
}

// ScoredPassage is a search hit.
type ScoredPassage struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

func (s ScoredPassage) Ref() PassageRef {
	ref := s.Passage.Ref()
	ref.Score = s.Score
	return ref
}
