package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"swimcoach-be/pkg/rag/ingest"
	"swimcoach-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	sources   []ingest.Source
	ingestErr error
	hits      []store.ScoredPassage
	queries   []string
	ks        []int
	passages  int
	closed    bool
}

func (f *fakeRuntime) Ingest(_ context.Context, src ingest.Source) (*ingest.Result, error) {
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	f.sources = append(f.sources, src)
	f.passages += 2
	return &ingest.Result{SourceID: src.Path, Passages: 2, IndexTotal: f.passages, Message: "Ingested 2 passages from " + src.Path}, nil
}

func (f *fakeRuntime) Search(_ context.Context, query string, k int) ([]store.ScoredPassage, error) {
	f.queries = append(f.queries, query)
	f.ks = append(f.ks, k)
	return f.hits, nil
}

func (f *fakeRuntime) Stats() (int, int) { return f.passages, 8 }

func (f *fakeRuntime) Close() error {
	f.closed = true
	return nil
}

func setupTestRuntime(t *testing.T, rt *fakeRuntime) *bytes.Buffer {
	t.Helper()
	openRuntime = func(context.Context) (Runtime, error) { return rt, nil }

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	t.Cleanup(func() {
		openRuntime = nil
		rootCmd.SetArgs(nil)
		runReplace, runSourceID = false, ""
		inspectQuery, inspectK, inspectJSON = "", 3, false
	})
	return buf
}

func TestRunCmd_RequiresFiles(t *testing.T) {
	setupTestRuntime(t, &fakeRuntime{})
	rootCmd.SetArgs([]string{"run"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestRunCmd_IngestsEachFile(t *testing.T) {
	rt := &fakeRuntime{}
	buf := setupTestRuntime(t, rt)
	rootCmd.SetArgs([]string{"run", "--replace", "anna.txt", "ben.csv"})

	require.NoError(t, rootCmd.Execute())

	require.Len(t, rt.sources, 2)
	assert.Equal(t, "anna.txt", rt.sources[0].Path)
	assert.True(t, rt.sources[0].Replace)
	assert.Equal(t, "ben.csv", rt.sources[1].Path)
	assert.Contains(t, buf.String(), "Ingested 2 passages from anna.txt")
	assert.Contains(t, buf.String(), "Index holds 4 passages (dimension 8)")
	assert.True(t, rt.closed)
}

func TestRunCmd_SourceIDNeedsSingleFile(t *testing.T) {
	rt := &fakeRuntime{}
	setupTestRuntime(t, rt)
	rootCmd.SetArgs([]string{"run", "--source-id", "anna", "a.txt", "b.txt"})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Empty(t, rt.sources)
}

func TestRunCmd_StopsOnFirstFailure(t *testing.T) {
	rt := &fakeRuntime{ingestErr: errors.New("embedding provider down")}
	setupTestRuntime(t, rt)
	rootCmd.SetArgs([]string{"run", "a.txt", "b.txt"})

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest a.txt")
	assert.Contains(t, err.Error(), "embedding provider down")
	assert.True(t, rt.closed)
}

func TestRunCmd_WithoutRuntime(t *testing.T) {
	setupTestRuntime(t, &fakeRuntime{})
	openRuntime = nil
	rootCmd.SetArgs([]string{"run", "a.txt"})

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Equal(t, "runtime not configured", err.Error())
}

func TestInspectCmd_StatsOnly(t *testing.T) {
	rt := &fakeRuntime{passages: 12}
	buf := setupTestRuntime(t, rt)
	rootCmd.SetArgs([]string{"inspect"})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, buf.String(), "Index holds 12 passages")
	assert.Empty(t, rt.queries)
}

func TestInspectCmd_HasTopKFlag(t *testing.T) {
	flag := inspectCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag)
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "3", flag.DefValue)
}

func TestInspectCmd_PrintsHits(t *testing.T) {
	rt := &fakeRuntime{passages: 2, hits: []store.ScoredPassage{
		{Passage: store.Passage{ID: "p1", SourceID: "anna.txt", Text: "Anna swam 100 fly\nin 1:04"}, Score: 0.91},
	}}
	buf := setupTestRuntime(t, rt)
	rootCmd.SetArgs([]string{"inspect", "-q", "Anna fly", "-k", "5"})

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, []string{"Anna fly"}, rt.queries)
	assert.Equal(t, []int{5}, rt.ks)
	assert.Contains(t, buf.String(), "[1] anna.txt (0.9100)")
	assert.Contains(t, buf.String(), "Anna swam 100 fly in 1:04")
}

func TestInspectCmd_NoResults(t *testing.T) {
	buf := setupTestRuntime(t, &fakeRuntime{})
	rootCmd.SetArgs([]string{"inspect", "--query", "anything"})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, buf.String(), "No results found.")
}

func TestInspectCmd_JSONOmitsEmbeddings(t *testing.T) {
	rt := &fakeRuntime{hits: []store.ScoredPassage{
		{Passage: store.Passage{ID: "p1", SourceID: "anna.txt", Text: "Anna", Embedding: []float32{1, 2}}, Score: 0.5},
	}}
	buf := setupTestRuntime(t, rt)
	rootCmd.SetArgs([]string{"inspect", "-q", "Anna", "--json"})

	require.NoError(t, rootCmd.Execute())

	var refs []store.PassageRef
	require.NoError(t, json.Unmarshal(buf.Bytes(), &refs))
	require.Len(t, refs, 1)
	assert.Equal(t, "p1", refs[0].ID)
	assert.Equal(t, 0.5, refs[0].Score)
	assert.NotContains(t, buf.String(), "embedding")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine(" a\n b\tc ", 10))
	assert.Equal(t, "abc...", oneLine("abcdef", 3))
}
