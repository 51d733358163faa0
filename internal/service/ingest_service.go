package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/events"
	"swimcoach-be/pkg/rag/ingest"
)

type IngestPipeline interface {
	Ingest(ctx context.Context, src ingest.Source) (*ingest.Result, error)
}

type IIngestService interface {
	// Ingest runs the pipeline now.
	Ingest(ctx context.Context, src ingest.Source) (*dto.IngestResponse, error)
	// Enqueue hands the source to the background consumer.
	Enqueue(ctx context.Context, src ingest.Source) (*dto.IngestJobResponse, error)
	// ResolvePath maps a client path onto the documents directory.
	ResolvePath(path string) (string, error)
}

type ingestService struct {
	pipeline     IngestPipeline
	publisher    IPublisherService
	events       events.Publisher
	documentsDir string
	logger       logger.ILogger
}

func NewIngestService(
	pipeline IngestPipeline,
	publisher IPublisherService,
	eventPublisher events.Publisher,
	documentsDir string,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		pipeline:     pipeline,
		publisher:    publisher,
		events:       eventPublisher,
		documentsDir: documentsDir,
		logger:       log,
	}
}

func (s *ingestService) Ingest(ctx context.Context, src ingest.Source) (*dto.IngestResponse, error) {
	res, err := s.pipeline.Ingest(ctx, src)
	if err != nil {
		s.logger.Error("IngestService", "Ingestion failed", map[string]interface{}{
			"source_id": src.SourceID,
			"error":     err.Error(),
		})
		return nil, err
	}

	s.logger.Info("IngestService", res.Message, map[string]interface{}{
		"source_id":   res.SourceID,
		"passages":    res.Passages,
		"index_total": res.IndexTotal,
	})
	if res.Passages > 0 {
		publishEvent(ctx, s.events, events.DocumentIngested(res.SourceID, res.Passages, res.IndexTotal), s.logger)
	}

	return &dto.IngestResponse{
		Summary:    res.Message,
		SourceId:   res.SourceID,
		Passages:   res.Passages,
		IndexTotal: res.IndexTotal,
	}, nil
}

func (s *ingestService) Enqueue(ctx context.Context, src ingest.Source) (*dto.IngestJobResponse, error) {
	if src.SourceID == "" {
		src.SourceID = filepath.Base(src.Path)
	}
	payload, err := json.Marshal(dto.IngestJobMessage{
		Path:     src.Path,
		MimeType: src.MimeType,
		SourceId: src.SourceID,
		Replace:  src.Replace,
		Staged:   src.Staged,
	})
	if err != nil {
		return nil, apperror.Internal(apperror.StageIngestion, err)
	}

	jobId, err := s.publisher.Publish(ctx, payload)
	if err != nil {
		// The consumer will never see this file, so release it here
		if src.Staged {
			_ = os.Remove(src.Path)
		}
		return nil, apperror.Internal(apperror.StageIngestion, fmt.Errorf("enqueue ingest job: %w", err))
	}

	s.logger.Info("IngestService", "Ingest job queued", map[string]interface{}{
		"job_id":    jobId,
		"source_id": src.SourceID,
	})
	return &dto.IngestJobResponse{JobId: jobId, SourceId: src.SourceID}, nil
}

func (s *ingestService) ResolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", apperror.Validation("path is required")
	}

	base, err := filepath.Abs(s.documentsDir)
	if err != nil {
		return "", apperror.Internal(apperror.StageIngestion, err)
	}
	full := filepath.Join(base, filepath.Clean("/"+path))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", apperror.Validation("path must name a file inside the documents directory")
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", apperror.Validation(fmt.Sprintf("document %q not found", path))
	}
	return full, nil
}
