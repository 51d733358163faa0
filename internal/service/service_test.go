package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"swimcoach-be/internal/dto"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/internal/repository/memory"
	"swimcoach-be/pkg/apperror"
	"swimcoach-be/pkg/events"
	"swimcoach-be/pkg/rag/ingest"
	"swimcoach-be/pkg/rag/response"
	"swimcoach-be/pkg/rag/session"
	"swimcoach-be/pkg/rag/situation"
	"swimcoach-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWeather struct {
	summary string
	err     error
}

func (f *fakeWeather) Current(context.Context, string) (string, error) {
	return f.summary, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType()
	}
	return out
}

type fakeGenerator struct {
	reply string
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, sess *session.Session, _ store.SituationalContext, query, _ string) (*response.Result, error) {
	if g.err != nil {
		return nil, g.err
	}
	sources := []store.ScoredPassage{{Passage: store.Passage{ID: "p1", SourceID: "anna.txt", Text: "Anna 100 fly"}, Score: 0.8}}
	sess.Record(query, g.reply, []store.PassageRef{sources[0].Ref()})
	return &response.Result{Response: g.reply, Sources: sources}, nil
}

type fakePipeline struct {
	mu      sync.Mutex
	sources []ingest.Source
	err     error
}

func (p *fakePipeline) Ingest(_ context.Context, src ingest.Source) (*ingest.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources = append(p.sources, src)
	if p.err != nil {
		return nil, p.err
	}
	return &ingest.Result{SourceID: src.SourceID, Passages: 3, IndexTotal: 3, Message: "Ingested 3 passages from " + src.SourceID}, nil
}

func (p *fakePipeline) received() []ingest.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ingest.Source(nil), p.sources...)
}

type failingQueue struct{}

func (failingQueue) Publish(context.Context, []byte) (string, error) {
	return "", errors.New("queue closed")
}

func TestLocationService_SetLocation(t *testing.T) {
	holder := situation.NewHolder()
	pub := &recordingPublisher{}
	svc := NewLocationService(&fakeWeather{summary: "Current weather in Leeds: rain, temperature 9°C"}, holder, pub, time.Second, logger.NewNopLogger())

	res, err := svc.SetLocation(context.Background(), "  Leeds  ")
	require.NoError(t, err)

	assert.Equal(t, "Current weather in Leeds: rain, temperature 9°C", res.Weather)
	assert.Equal(t, "Leeds", res.Context.LocationName)
	assert.NotEmpty(t, res.Context.CurrentDate)
	assert.Equal(t, res.Context, svc.Current())
	assert.Equal(t, []string{events.TypeLocationSet}, pub.types())
}

func TestLocationService_FailureKeepsPreviousContext(t *testing.T) {
	holder := situation.NewHolder()
	holder.Set("Leeds", "sunny")
	weather := &fakeWeather{err: apperror.Provider(apperror.StageLocation, errors.New("503"))}
	pub := &recordingPublisher{}
	svc := NewLocationService(weather, holder, pub, time.Second, logger.NewNopLogger())

	_, err := svc.SetLocation(context.Background(), "York")

	require.Error(t, err)
	assert.Equal(t, apperror.KindProvider, apperror.KindOf(err))
	assert.Equal(t, "Leeds", svc.Current().LocationName)
	assert.Equal(t, "sunny", svc.Current().WeatherSummary)
	assert.Empty(t, pub.types())
}

func TestLocationService_RequiresPool(t *testing.T) {
	svc := NewLocationService(&fakeWeather{}, situation.NewHolder(), nil, time.Second, logger.NewNopLogger())

	_, err := svc.SetLocation(context.Background(), " ")

	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestLocationService_EventFailureDoesNotFailRequest(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	svc := NewLocationService(&fakeWeather{summary: "ok"}, situation.NewHolder(), pub, time.Second, logger.NewNopLogger())

	_, err := svc.SetLocation(context.Background(), "Leeds")

	assert.NoError(t, err)
	assert.Len(t, pub.types(), 1)
}

func newChatService(gen Generator, pub events.Publisher) (IChatService, *session.Manager) {
	sessions := session.NewManager(memory.NewSessionRepository(time.Hour), 10)
	return NewChatService(gen, sessions, situation.NewHolder(), pub, 10, logger.NewNopLogger()), sessions
}

func TestChatService_Chat(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newChatService(&fakeGenerator{reply: "Anna is improving."}, pub)

	res, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "How is Anna?"})
	require.NoError(t, err)

	assert.Equal(t, session.DefaultID, res.SessionId)
	assert.Equal(t, "Anna is improving.", res.Response)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "p1", res.Sources[0].Id)
	assert.Equal(t, []string{events.TypeChatCompleted}, pub.types())

	snap := svc.GetSession("")
	assert.Len(t, snap.Turns, 2)
	assert.Equal(t, []string{"How is Anna?"}, snap.RecentEntries)
}

func TestChatService_FailedTurnIsNotRecorded(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newChatService(&fakeGenerator{err: apperror.Timeout(apperror.StageGeneration, context.DeadlineExceeded)}, pub)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "How is Anna?", SessionId: "coach-1"})

	require.Error(t, err)
	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(err))
	assert.Empty(t, svc.GetSession("coach-1").Turns)
	assert.Empty(t, pub.types())
}

func TestChatService_SessionsAreIsolated(t *testing.T) {
	svc, _ := newChatService(&fakeGenerator{reply: "ok"}, nil)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: "one", SessionId: "a"})
	require.NoError(t, err)

	assert.Len(t, svc.GetSession("a").Turns, 2)
	assert.Empty(t, svc.GetSession("b").Turns)
	assert.Equal(t, "b", svc.GetSession("b").SessionId)
}

func TestChatService_ResetActions(t *testing.T) {
	svc, _ := newChatService(&fakeGenerator{reply: "ok"}, nil)
	for _, q := range []string{"first", "second"} {
		_, err := svc.Chat(context.Background(), &dto.ChatRequest{Query: q})
		require.NoError(t, err)
	}

	popped, err := svc.PopEntry("")
	require.NoError(t, err)
	assert.Equal(t, "second", popped.Removed)
	assert.Equal(t, []string{"first"}, svc.GetSession("").RecentEntries)

	cleared := svc.ClearHistory("")
	assert.Empty(t, cleared.Turns)
	assert.Equal(t, []string{"first"}, cleared.RecentEntries)

	cleared = svc.ClearEntries("")
	assert.Empty(t, cleared.RecentEntries)

	_, err = svc.PopEntry("")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestChatService_PopEntryUnknownSession(t *testing.T) {
	svc, _ := newChatService(&fakeGenerator{reply: "ok"}, nil)

	_, err := svc.PopEntry("nobody")

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestIngestService_ResolvePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anna.txt"), []byte("Anna"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	svc := NewIngestService(&fakePipeline{}, nil, nil, dir, logger.NewNopLogger())

	full, err := svc.ResolvePath("anna.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "anna.txt"), full)

	full, err = svc.ResolvePath("../../anna.txt")
	require.NoError(t, err, "traversal is clamped to the documents directory")
	assert.Equal(t, filepath.Join(dir, "anna.txt"), full)

	for _, p := range []string{"", "sub", "missing.txt", "/"} {
		_, err := svc.ResolvePath(p)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), p)
	}
}

func TestIngestService_IngestPublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewIngestService(&fakePipeline{}, nil, pub, t.TempDir(), logger.NewNopLogger())

	res, err := svc.Ingest(context.Background(), ingest.Source{Path: "anna.txt", SourceID: "anna"})
	require.NoError(t, err)

	assert.Equal(t, "Ingested 3 passages from anna", res.Summary)
	assert.Equal(t, 3, res.Passages)
	assert.Equal(t, []string{events.TypeDocumentIngested}, pub.types())
}

func TestIngestService_EnqueueFailureReleasesStagedFile(t *testing.T) {
	staged := filepath.Join(t.TempDir(), "upload-1.txt")
	require.NoError(t, os.WriteFile(staged, []byte("Anna"), 0o644))
	svc := NewIngestService(&fakePipeline{}, failingQueue{}, nil, t.TempDir(), logger.NewNopLogger())

	_, err := svc.Enqueue(context.Background(), ingest.Source{Path: staged, Staged: true})

	require.Error(t, err)
	assert.NoFileExists(t, staged)
}

func TestIngestJobRoundTrip(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	pipeline := &fakePipeline{}
	ingestSvc := NewIngestService(pipeline, NewPublisherService("INGEST_DOCUMENT", pubSub), nil, t.TempDir(), logger.NewNopLogger())
	consumer := NewConsumerService(pubSub, "INGEST_DOCUMENT", ingestSvc, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, consumer.Consume(ctx))

	job, err := ingestSvc.Enqueue(context.Background(), ingest.Source{Path: "/docs/ben.csv", MimeType: "text/csv", Replace: true})
	require.NoError(t, err)
	assert.NotEmpty(t, job.JobId)
	assert.Equal(t, "ben.csv", job.SourceId)

	require.Eventually(t, func() bool { return len(pipeline.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := pipeline.received()[0]
	assert.Equal(t, "/docs/ben.csv", got.Path)
	assert.Equal(t, "ben.csv", got.SourceID)
	assert.Equal(t, "text/csv", got.MimeType)
	assert.True(t, got.Replace)
}
