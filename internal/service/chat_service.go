package service

import (
	"context"

	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/mapper"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/events"
	"swimcoach-be/pkg/rag/response"
	"swimcoach-be/pkg/rag/session"
	"swimcoach-be/pkg/rag/situation"
	"swimcoach-be/pkg/store"
)

type Generator interface {
	Generate(ctx context.Context, sess *session.Session, situational store.SituationalContext, query, history string) (*response.Result, error)
}

type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetSession(sessionId string) *dto.SessionResponse
	ClearHistory(sessionId string) *dto.SessionResponse
	ClearEntries(sessionId string) *dto.SessionResponse
	PopEntry(sessionId string) (*dto.PopEntryResponse, error)
}

type chatService struct {
	generator Generator
	sessions  *session.Manager
	holder    *situation.Holder
	events    events.Publisher
	limit     int
	mapper    *mapper.RagMapper
	logger    logger.ILogger
}

func NewChatService(
	generator Generator,
	sessions *session.Manager,
	holder *situation.Holder,
	eventPublisher events.Publisher,
	limit int,
	log logger.ILogger,
) IChatService {
	if limit <= 0 {
		limit = session.DefaultLimit
	}
	return &chatService{
		generator: generator,
		sessions:  sessions,
		holder:    holder,
		events:    eventPublisher,
		limit:     limit,
		mapper:    mapper.NewRagMapper(),
		logger:    log,
	}
}

func (s *chatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	sess := s.sessions.LoadOrCreate(req.SessionId)

	res, err := s.generator.Generate(ctx, sess, s.holder.Current(), req.Query, req.History)
	if err != nil {
		if apperror.KindOf(err) != apperror.KindValidation {
			s.logger.Error("ChatService", "Chat turn failed", map[string]interface{}{
				"session_id": sess.ID(),
				"error":      err.Error(),
			})
		}
		return nil, err
	}

	publishEvent(ctx, s.events, events.ChatCompleted(sess.ID(), len(res.Sources)), s.logger)

	return &dto.ChatResponse{
		SessionId: sess.ID(),
		Response:  res.Response,
		Sources:   s.mapper.ToSourceDTOs(res.Sources),
	}, nil
}

func (s *chatService) GetSession(sessionId string) *dto.SessionResponse {
	sess, ok := s.sessions.Lookup(sessionId)
	if !ok {
		if sessionId == "" {
			sessionId = session.DefaultID
		}
		return s.mapper.ToSessionResponse(store.SessionSnapshot{ID: sessionId}, s.limit)
	}
	return s.mapper.ToSessionResponse(sess.Snapshot(), sess.Limit())
}

func (s *chatService) ClearHistory(sessionId string) *dto.SessionResponse {
	if sess, ok := s.sessions.Lookup(sessionId); ok {
		sess.Clear()
	}
	return s.GetSession(sessionId)
}

func (s *chatService) ClearEntries(sessionId string) *dto.SessionResponse {
	if sess, ok := s.sessions.Lookup(sessionId); ok {
		sess.ClearEntries()
	}
	return s.GetSession(sessionId)
}

func (s *chatService) PopEntry(sessionId string) (*dto.PopEntryResponse, error) {
	sess, ok := s.sessions.Lookup(sessionId)
	if !ok {
		return nil, apperror.Validation("no entries to remove")
	}
	removed, ok := sess.PopEntry()
	if !ok {
		return nil, apperror.Validation("no entries to remove")
	}
	return &dto.PopEntryResponse{Removed: removed}, nil
}
