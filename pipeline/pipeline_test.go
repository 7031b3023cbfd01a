package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/ai/mock"
	"github.com/poiesic/minutia/ai/simulated"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/extraction"
	"github.com/poiesic/minutia/indexing"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/retrieval"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/storage/chromem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDim    = 64
	transcript = "Alice will send the report by Friday. Bob agreed to review the budget."
)

var meetingTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    storage.VectorStore
	metrics  *metrics.Metrics
	pipeline *Pipeline
}

func newFixture(t *testing.T, provider ai.Provider, store storage.VectorStore, opts ...Option) *fixture {
	t.Helper()
	if store == nil {
		store = chromem.NewMemoryStore(testDim)
	}
	t.Cleanup(func() { store.Close() })

	m := metrics.New(prometheus.NewRegistry())
	indexer, err := indexing.NewIndexer(provider.Embedder(), store, indexing.WithMetrics(m))
	require.NoError(t, err)
	retriever, err := retrieval.NewRetriever(provider.Embedder(), store, retrieval.WithMetrics(m))
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return meetingTime }), WithMetrics(m)}, opts...)
	p, err := NewPipeline(
		extraction.NewExtractor(provider.MetadataExtractor()),
		indexer,
		retriever,
		provider.InsightsGenerator(),
		opts...,
	)
	require.NoError(t, err)
	return &fixture{store: store, metrics: m, pipeline: p}
}

func people(items []core.ToDoItem) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.Person)
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, simulated.NewProvider(), nil)
	ctx := context.Background()

	result, err := f.pipeline.Run(ctx, transcript)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Metadata.ProjectName)
	assert.NotEmpty(t, result.Metadata.Department)
	assert.NotEmpty(t, result.Metadata.SearchString)

	assert.Contains(t, people(result.Insights.ToDoList), "Alice")
	assert.Contains(t, people(result.Insights.ToDoList), "Bob")
	assert.NotEmpty(t, result.Insights.Overview)

	assert.Equal(t, 1, result.IndexedChunks)
	assert.Equal(t, len(result.Insights.ToDoList)+1, result.InsightRecords)

	// The transcript is indexed before retrieval, so it is its own context.
	assert.True(t, strings.HasPrefix(result.Context, "Context #1: "))
	assert.Contains(t, result.Prompt, "--- HISTORICAL CONTEXT (Project: "+result.Metadata.ProjectName+") ---")
	assert.Contains(t, result.Prompt, transcript)

	count, err := f.store.Count(ctx, result.Metadata.ProjectName)
	require.NoError(t, err)
	assert.Equal(t, result.IndexedChunks+result.InsightRecords, count)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PipelineRunsTotal.WithLabelValues(outcomeOK)))
}

func TestRun_InsightsAreRetrievableLater(t *testing.T) {
	f := newFixture(t, simulated.NewProvider(), nil)
	ctx := context.Background()

	first, err := f.pipeline.Run(ctx, transcript)
	require.NoError(t, err)

	matches, err := f.store.Query(ctx, storage.QueryRequest{
		Namespace: first.Metadata.ProjectName,
		Vector:    unitVector(testDim),
		TopK:      20,
	})
	require.NoError(t, err)

	var texts []string
	for _, m := range matches {
		texts = append(texts, m.Metadata.Text)
	}
	assert.Contains(t, texts, "Overview: "+first.Insights.Overview)
	assert.Contains(t, texts, "Alice: send the report by Friday (action)")
}

func TestRun_EmptyTranscript(t *testing.T) {
	provider := mock.NewMockProvider()
	f := newFixture(t, provider, nil)

	_, err := f.pipeline.Run(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, core.ErrEmptyTranscript)

	var se *StageError
	assert.False(t, errors.As(err, &se))
	assert.Zero(t, provider.(*mock.MockProvider).GetMockExtractor().CallCount())
}

func TestRun_GenerationFailureKeepsTranscriptIndexed(t *testing.T) {
	genErr := errors.New("model overloaded")
	generator := mock.NewMockInsightsGenerator()
	generator.GenerateInsightsFunc = func(context.Context, string, string) (*core.Insights, error) {
		return nil, genErr
	}
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), generator, mock.NewMockMetadataExtractor())
	f := newFixture(t, provider, nil)
	ctx := context.Background()

	_, err := f.pipeline.Run(ctx, transcript)
	require.Error(t, err)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageGenerateInsights, se.Stage)
	assert.ErrorIs(t, err, genErr)
	assert.Contains(t, err.Error(), string(StageGenerateInsights))

	count, err := f.store.Count(ctx, core.DefaultProjectName)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, 1, generator.CallCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PipelineRunsTotal.WithLabelValues(string(StageGenerateInsights))))
}

func TestRun_PassesCompositePromptToGenerator(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockExtractor().ExtractMetadataFunc = func(context.Context, string) (*core.Metadata, error) {
		return &core.Metadata{ProjectName: "Apollo", Department: "Engineering", SearchString: "report"}, nil
	}
	f := newFixture(t, provider, nil, WithSystemPrompt("Be brief."))

	result, err := f.pipeline.Run(context.Background(), transcript)
	require.NoError(t, err)

	prompt := provider.GetMockGenerator().LastPrompt()
	assert.Equal(t, result.Prompt, prompt)
	assert.True(t, strings.HasPrefix(prompt, "Be brief.\n\n--- HISTORICAL CONTEXT (Project: Apollo) ---\n"))
	assert.Equal(t, "Apollo", result.Metadata.ProjectName)
}

func TestRun_IndexFailure(t *testing.T) {
	upsertErr := errors.New("disk full")
	store := &failingStore{VectorStore: chromem.NewMemoryStore(testDim), err: upsertErr}
	provider := mock.NewMockProvider().(*mock.MockProvider)
	f := newFixture(t, provider, store)

	_, err := f.pipeline.Run(context.Background(), transcript)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageEmbedAndStore, se.Stage)
	assert.ErrorIs(t, err, upsertErr)
	assert.Zero(t, provider.GetMockGenerator().CallCount())
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, mock.NewMockProvider(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Run(ctx, transcript)

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageExtractMetadata, se.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPipeline_RequiresComponents(t *testing.T) {
	provider := mock.NewMockProvider()
	store := chromem.NewMemoryStore(testDim)
	indexer, err := indexing.NewIndexer(provider.Embedder(), store)
	require.NoError(t, err)
	retriever, err := retrieval.NewRetriever(provider.Embedder(), store)
	require.NoError(t, err)
	extractor := extraction.NewExtractor(nil)

	_, err = NewPipeline(nil, indexer, retriever, provider.InsightsGenerator())
	assert.ErrorIs(t, err, ErrExtractorRequired)
	_, err = NewPipeline(extractor, nil, retriever, provider.InsightsGenerator())
	assert.ErrorIs(t, err, ErrIndexerRequired)
	_, err = NewPipeline(extractor, indexer, nil, provider.InsightsGenerator())
	assert.ErrorIs(t, err, ErrRetrieverRequired)
	_, err = NewPipeline(extractor, indexer, retriever, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("", "Apollo", "", "Alice: hi")
	assert.Equal(t, "--- HISTORICAL CONTEXT (Project: Apollo) ---\n"+
		"No relevant historical context found.\n"+
		"--- END OF HISTORICAL CONTEXT ---\n\n"+
		"--- CURRENT MEETING TRANSCRIPT ---\n"+
		"Alice: hi\n"+
		"---\n\n"+
		instructions, prompt)

	prompt = BuildPrompt(DefaultSystemPrompt, "Apollo", "Context #1: kickoff", "Alice: hi")
	assert.True(t, strings.HasPrefix(prompt, DefaultSystemPrompt+"\n\n"))
	assert.Contains(t, prompt, "\nContext #1: kickoff\n")
	assert.NotContains(t, prompt, "No relevant historical context found.")
}

func TestInsightsDate(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 999_999, time.UTC)
	next := insightsDate(at)

	assert.True(t, next.After(at))
	assert.NotEqual(t, core.DateISO(at), core.DateISO(next))
}

func TestBatch(t *testing.T) {
	provider := simulated.NewProvider()
	f := newFixture(t, provider, nil, WithPoolSize(2), WithClock(time.Now))

	items := []BatchItem{
		{Name: "monday", Transcript: transcript},
		{Name: "empty", Transcript: "   "},
		{Name: "tuesday", Transcript: "Project Apollo sync. Carol will book the venue."},
	}
	results, err := f.pipeline.Batch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "monday", results[0].Name)
	require.NoError(t, results[0].Err)
	assert.Contains(t, people(results[0].Result.Insights.ToDoList), "Alice")

	assert.Equal(t, "empty", results[1].Name)
	assert.ErrorIs(t, results[1].Err, core.ErrEmptyTranscript)
	assert.Nil(t, results[1].Result)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "Apollo", results[2].Result.Metadata.ProjectName)
	assert.Contains(t, people(results[2].Result.Insights.ToDoList), "Carol")
}

func TestBatch_Empty(t *testing.T) {
	f := newFixture(t, mock.NewMockProvider(), nil)
	results, err := f.pipeline.Batch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// failingStore wraps a store and fails every upsert.
type failingStore struct {
	storage.VectorStore
	err error
}

func (f *failingStore) Upsert(context.Context, string, ...*core.IndexRecord) error {
	return f.err
}

func unitVector(dim int) []float32 {
	v := make([]float32, dim)
	v[0] = 1
	return v
}
