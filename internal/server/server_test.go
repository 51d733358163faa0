package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"swimcoach-be/internal/bootstrap"
	"swimcoach-be/internal/config"
	"swimcoach-be/internal/pkg/logger"
	"swimcoach-be/internal/testutil"
	"swimcoach-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annaStory = "Anna swam the 100 fly in 1:04 at the county gala and took gold.\n\n" +
	"Her coach says the underwater kicks off each wall were the best of the season."

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type stubWeather struct{}

func (stubWeather) Current(_ context.Context, location string) (string, error) {
	return "Current weather in " + location + ": light rain, temperature 12°C", nil
}

// fakeOllama answers the Ollama embeddings API with hash vectors.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": testutil.HashVector(req.Prompt, 16)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	server    *Server
	container *bootstrap.Container
	llm       *testutil.FakeLLM
	docs      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "anna.txt"), []byte(annaStory), 0o644))

	cfg := &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			CorsAllowedOrigins: "*",
			UploadDir:          t.TempDir(),
			DocumentsDir:       docs,
			IngestTopic:        "INGEST_DOCUMENT",
		},
		Ai: config.AIConfig{
			EmbeddingProvider: "ollama",
			OllamaBaseURL:     fakeOllama(t).URL,
			OllamaModel:       "hash",
			LLMProvider:       "openai",
			LLMModel:          "fake",
		},
		Rag: config.RagConfig{
			ChunkSize:        400,
			ChunkOverlap:     40,
			ChunkStrategy:    "fixed",
			TopK:             3,
			SessionLimit:     10,
			SessionTTL:       time.Minute,
			Metric:           "cosine",
			SnapshotBackend:  config.SnapshotBackendFile,
			SnapshotDir:      t.TempDir(),
			SnapshotKey:      "swimmer-story",
			EmbedConcurrency: 2,
			EmbedBatchSize:   8,
			WeatherCacheTTL:  time.Minute,
		},
		Timeouts: config.TimeoutConfig{
			Embed:    5 * time.Second,
			Generate: 5 * time.Second,
			Persist:  5 * time.Second,
			Weather:  5 * time.Second,
		},
	}

	fake := &testutil.FakeLLM{Reply: "Anna is in great form."}
	c, err := bootstrap.NewContainer(context.Background(), cfg, logger.NewNopLogger(), bootstrap.Overrides{
		LLM:     fake,
		Weather: stubWeather{},
		Events:  events.NopPublisher{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return &harness{server: New(cfg, c), container: c, llm: fake, docs: docs}
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(t, req)
}

func (h *harness) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := h.server.GetApp().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestServer_WelcomeRoute(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(t, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Equal(t, 0, decode[map[string]int](t, env.Data)["passages"])
}

func TestServer_UnknownRouteUsesErrorEnvelope(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(t, http.MethodGet, "/api/nowhere", nil)

	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestServer_SetLocation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
		wantMsg  string
	}{
		{"missing pool", map[string]string{}, http.StatusBadRequest, "Pool name is required"},
		{"pool set", map[string]string{"pool": "Leeds Aquatics"}, http.StatusOK, "Location and weather set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := h.do(t, http.MethodPost, "/api/location", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, env.Message)
		})
	}

	_, env := h.do(t, http.MethodGet, "/api/location", nil)
	current := decode[map[string]string](t, env.Data)
	assert.Equal(t, "Leeds Aquatics", current["location_name"])
	assert.Contains(t, current["weather_summary"], "light rain")
}

func TestServer_IngestThenChat(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(t, http.MethodPost, "/api/ingest", map[string]string{"path": "anna.txt"})
	require.Equal(t, http.StatusOK, code, env.Message)
	ingested := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "anna.txt", ingested["source_id"])
	assert.EqualValues(t, 1, ingested["passages"])

	code, _ = h.do(t, http.MethodPost, "/api/location", map[string]string{"pool": "Leeds Aquatics"})
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(t, http.MethodPost, "/api/chat", map[string]string{"query": "Anna 100 fly"})
	require.Equal(t, http.StatusOK, code, env.Message)
	chat := decode[struct {
		SessionId string `json:"session_id"`
		Response  string `json:"response"`
		Sources   []struct {
			SourceId string `json:"source_id"`
		} `json:"sources"`
	}](t, env.Data)
	assert.Equal(t, "global", chat.SessionId)
	assert.Equal(t, "Anna is in great form.", chat.Response)
	require.Len(t, chat.Sources, 1)
	assert.Equal(t, "anna.txt", chat.Sources[0].SourceId)

	received := h.llm.Received()
	require.Len(t, received, 1)
	assert.Contains(t, received[0][0].Content, "Location: Leeds Aquatics")
	assert.Contains(t, received[0][0].Content, "county gala")

	_, env = h.do(t, http.MethodGet, "/api/session", nil)
	sess := decode[map[string]interface{}](t, env.Data)
	assert.Len(t, sess["turns"], 2)

	code, env = h.do(t, http.MethodDelete, "/api/session/entries/last", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Anna 100 fly", decode[map[string]string](t, env.Data)["removed"])

	code, _ = h.do(t, http.MethodDelete, "/api/session/entries/last", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_ChatRequiresQuery(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(t, http.MethodPost, "/api/chat", map[string]string{"query": "  "})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Swimmer entry is required", env.Message)
	assert.Empty(t, h.llm.Received())
}

func TestServer_ChatOnEmptyIndex(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(t, http.MethodPost, "/api/chat", map[string]string{"query": "How is Anna?"})

	require.Equal(t, http.StatusOK, code, env.Message)
	chat := decode[map[string]interface{}](t, env.Data)
	assert.Empty(t, chat["sources"])
}

func TestServer_IngestPathOutsideDocuments(t *testing.T) {
	h := newHarness(t)

	code, _ := h.do(t, http.MethodPost, "/api/ingest", map[string]string{"path": "missing.txt"})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 0, h.container.RAG.Index.Len())
}

func TestServer_IngestUpload(t *testing.T) {
	h := newHarness(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "ben.md")
	require.NoError(t, err)
	_, err = fw.Write([]byte("# Ben\n\nBen swam 50 back in 31.2 and set a club record."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, env := h.send(t, req)

	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "ben.md", decode[map[string]interface{}](t, env.Data)["source_id"])
	assert.Equal(t, 1, h.container.RAG.Index.Len())

	staged, err := filepath.Glob(filepath.Join(h.server.cfg.App.UploadDir, "upload-*"))
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestServer_IngestAsync(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.container.ConsumerService.Consume(ctx))

	code, env := h.do(t, http.MethodPost, "/api/ingest?async=true", map[string]string{"path": "anna.txt"})

	require.Equal(t, http.StatusAccepted, code, env.Message)
	assert.NotEmpty(t, decode[map[string]string](t, env.Data)["job_id"])
	require.Eventually(t, func() bool { return h.container.RAG.Index.Len() == 1 }, 3*time.Second, 20*time.Millisecond)
}
