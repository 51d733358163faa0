package response

import (
	"context"
	"errors"
	"strings"
	"time"

	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/llm"
	"swimcoach-be/pkg/rag/prompt"
	"swimcoach-be/pkg/rag/session"
	"swimcoach-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Assembler interface {
	Assemble(ctx context.Context, req prompt.Request) (prompt.Messages, []store.ScoredPassage, error)
}

// Result is a grounded reply and the passages it was grounded on.
type Result struct {
	Response string
	Sources  []store.ScoredPassage
}

// Generator runs one chat turn: assemble, complete, then record on success.
type Generator struct {
	assembler   Assembler
	llmProvider llm.LLMProvider
	timeout     time.Duration
	options     []llm.Option
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewGenerator(assembler Assembler, llmProvider llm.LLMProvider, timeout time.Duration, logger *zap.Logger, options ...llm.Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		assembler:   assembler,
		llmProvider: llmProvider,
		timeout:     timeout,
		options:     options,
		logger:      logger,
		tracer:      otel.Tracer("swimcoach-be/rag"),
	}
}

// Generate answers query. The session is touched only after the model call
// succeeds; on any failure it is left exactly as it was.
func (g *Generator) Generate(ctx context.Context, sess *session.Session, situational store.SituationalContext, query, history string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Validation("Swimmer entry is required")
	}

	ctx, span := g.tracer.Start(ctx, "rag.generate", trace.WithAttributes(
		attribute.String("session.id", sess.ID()),
		attribute.Int("query.length", len(query)),
	))
	defer span.End()

	msgs, sources, err := g.assembler.Assemble(ctx, prompt.Request{
		Query:     query,
		Session:   sess.Snapshot(),
		Situation: situational,
		History:   history,
	})
	if err != nil {
		return nil, g.fail(span, "context assembly failed", apperror.WithStage(apperror.StageRetrieval, err))
	}
	span.SetAttributes(attribute.Int("rag.sources", len(sources)))

	reply, err := g.complete(ctx, msgs)
	if err != nil {
		return nil, g.fail(span, "language model call failed", err)
	}

	refs := make([]store.PassageRef, len(sources))
	for i, s := range sources {
		refs[i] = s.Ref()
	}
	sess.Record(query, reply, refs)

	g.logger.Info("chat turn completed",
		zap.String("session_id", sess.ID()),
		zap.Int("sources", len(sources)),
		zap.Int("reply_chars", len(reply)),
	)
	return &Result{Response: reply, Sources: sources}, nil
}

func (g *Generator) complete(ctx context.Context, msgs prompt.Messages) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	reply, err := llm.Complete(ctx, g.llmProvider, msgs.System, msgs.User, g.options...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", apperror.Timeout(apperror.StageGeneration, err)
		}
		return "", apperror.FromContext(apperror.StageGeneration, err, apperror.Provider)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", apperror.Provider(apperror.StageGeneration, errors.New("model returned an empty reply"))
	}
	return reply, nil
}

func (g *Generator) fail(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	g.logger.Error(msg, zap.Error(err))
	return err
}
