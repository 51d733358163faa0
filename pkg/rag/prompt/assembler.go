package prompt

import (
	"context"

	"swimcoach-be/pkg/store"

	"go.uber.org/zap"
)

type Retriever interface {
	Execute(ctx context.Context, query string, k int) ([]store.ScoredPassage, error)
}

// Request is everything the assembler needs for one turn.
type Request struct {
	Query     string
	Session   store.SessionSnapshot
	Situation store.SituationalContext
	// History, when non-blank, replaces the rendering of Session.
	History string
}

// Assembler retrieves context for a query and renders the prompt around it.
type Assembler struct {
	retriever Retriever
	topK      int
	persona   string
	logger    *zap.Logger
}

func NewAssembler(retriever Retriever, topK int, persona string, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{retriever: retriever, topK: topK, persona: persona, logger: logger}
}

// Assemble returns the prompt and the passages it was grounded on, in rank
// order. Zero retrieved passages is not an error.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Messages, []store.ScoredPassage, error) {
	passages, err := a.retriever.Execute(ctx, req.Query, a.topK)
	if err != nil {
		return Messages{}, nil, err
	}

	msgs := NewContextualBuilder(a.persona, req.Query).
		WithSituation(req.Situation).
		WithPassages(passages).
		WithSession(req.Session).
		WithHistory(req.History).
		Build()

	a.logger.Debug("prompt assembled",
		zap.Int("passages", len(passages)),
		zap.Int("session_turns", len(req.Session.Turns)),
		zap.Bool("explicit_history", req.History != ""),
		zap.Int("system_chars", len(msgs.System)),
	)
	return msgs, passages, nil
}
