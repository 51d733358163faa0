package service

import (
	"context"
	"strings"
	"time"

	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/mapper"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/events"
	"swimcoach-be/pkg/rag/situation"
	"swimcoach-be/pkg/weather"
)

type ILocationService interface {
	SetLocation(ctx context.Context, pool string) (*dto.SetLocationResponse, error)
	Current() dto.SituationalContextResponse
}

type locationService struct {
	weather weather.Provider
	holder  *situation.Holder
	events  events.Publisher
	timeout time.Duration
	mapper  *mapper.RagMapper
	logger  logger.ILogger
}

func NewLocationService(
	weatherProvider weather.Provider,
	holder *situation.Holder,
	publisher events.Publisher,
	timeout time.Duration,
	log logger.ILogger,
) ILocationService {
	return &locationService{
		weather: weatherProvider,
		holder:  holder,
		events:  publisher,
		timeout: timeout,
		mapper:  mapper.NewRagMapper(),
		logger:  log,
	}
}

// SetLocation looks up the weather first and only then replaces the
// situational context, so a failed lookup keeps the previous one.
func (s *locationService) SetLocation(ctx context.Context, pool string) (*dto.SetLocationResponse, error) {
	pool = strings.TrimSpace(pool)
	if pool == "" {
		return nil, apperror.Validation("Pool name is required")
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary, err := s.weather.Current(lookupCtx, pool)
	if err != nil {
		return nil, apperror.WithStage(apperror.StageLocation, err)
	}

	sc := s.holder.Set(pool, summary)
	s.logger.Info("LocationService", "Location and weather set", map[string]interface{}{
		"location": pool,
		"weather":  summary,
	})
	publishEvent(ctx, s.events, events.LocationSet(pool), s.logger)

	return &dto.SetLocationResponse{
		Weather: summary,
		Context: s.mapper.ToSituationalContextResponse(sc),
	}, nil
}

func (s *locationService) Current() dto.SituationalContextResponse {
	return s.mapper.ToSituationalContextResponse(s.holder.Current())
}
