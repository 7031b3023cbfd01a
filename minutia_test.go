package minutia

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/minutia/ai"
	"github.com/poiesic/minutia/ai/local"
	"github.com/poiesic/minutia/ai/mock"
	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/embedding"
	"github.com/poiesic/minutia/metrics"
	"github.com/poiesic/minutia/pipeline"
	"github.com/poiesic/minutia/storage"
	"github.com/poiesic/minutia/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcript = "Alice will send the report by Friday. Bob agreed to review the budget."

var meetingDate = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// stubModel stands in for the fastembed model.
type stubModel struct{}

func (stubModel) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, 384)
		v[i%384] = 1
		out[i] = v
	}
	return out, nil
}

func (stubModel) Close() error { return nil }

func unavailableModel() (local.Model, error) {
	return nil, errors.New("onnxruntime missing")
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	opts = append([]Option{
		WithMetrics(m),
		WithLocalLoader(unavailableModel),
		WithStoreConfig(StoreConfig{Kind: StoreChromem, Dim: 128}),
	}, opts...)
	e, err := NewEngine(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, m
}

func TestNewEngine_SimulatedEndToEnd(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.Analyze(context.Background(), transcript)
	require.NoError(t, err)

	var people []string
	for _, item := range result.Insights.ToDoList {
		people = append(people, item.Person)
	}
	assert.Contains(t, people, "Alice")
	assert.Contains(t, people, "Bob")

	count, err := e.Store().Count(context.Background(), result.Metadata.ProjectName)
	require.NoError(t, err)
	assert.Equal(t, result.IndexedChunks+result.InsightRecords, count)
	assert.Equal(t, 128, e.Store().Dim())
}

func TestNewEngine_FallsBackToLocalModel(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("401 unauthorized")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockInsightsGenerator(), mock.NewMockMetadataExtractor())

	e, m := newTestEngine(t,
		WithProvider(provider),
		WithLocalLoader(func() (local.Model, error) { return stubModel{}, nil }),
	)

	n, err := e.Indexer().IndexTexts(context.Background(), []string{"a", "b"}, "Apollo", "General", meetingDate)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingFallbacksTotal))
}

func TestNewEngine_BothEmbeddersFail(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("401 unauthorized")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockInsightsGenerator(), mock.NewMockMetadataExtractor())
	e, _ := newTestEngine(t, WithProvider(provider))

	_, err := e.Analyze(context.Background(), transcript)
	assert.ErrorIs(t, err, embedding.ErrAllEmbeddersFailed)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageEmbedAndStore, se.Stage)
}

func TestNewEngine_Stores(t *testing.T) {
	t.Run("badger in memory", func(t *testing.T) {
		e, _ := newTestEngine(t, WithStoreConfig(StoreConfig{Kind: StoreBadger, Dim: 64}))
		_, ok := e.Store().(*badger.Store)
		assert.True(t, ok)
	})

	t.Run("badger on disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index")
		e, _ := newTestEngine(t, WithStoreConfig(StoreConfig{Kind: StoreBadger, Path: path, Dim: 64}))
		_, err := e.Indexer().IndexTexts(context.Background(), []string{"hello"}, "Apollo", "General", meetingDate)
		require.NoError(t, err)
		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewEngine(context.Background(),
			WithMetrics(metrics.New(prometheus.NewRegistry())),
			WithStoreConfig(StoreConfig{Kind: "pinecone"}),
		)
		assert.ErrorIs(t, err, storage.ErrUnknownBackend)
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})
}

func TestNewEngine_ClosesProviderAndStore(t *testing.T) {
	provider := mock.NewMockProvider()
	e, err := NewEngine(context.Background(),
		WithProvider(provider),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	assert.True(t, provider.(*mock.MockProvider).Closed())

	_, err = e.Store().Count(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestEngine_NewReindexer(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Analyze(context.Background(), transcript)
	require.NoError(t, err)

	r, err := e.NewReindexer(nil, nil)
	require.NoError(t, err)
	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, stats.Records)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Embedder())

	_, err = NewProvider(ai.NewConfig(ai.WithKind("gemini")))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = NewProvider(ai.NewConfig(ai.WithKind(ai.KindAzure), ai.WithHost("https://x.openai.azure.com")))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	p, err = NewProvider(ai.NewConfig(ai.WithKind(ai.KindOpenAI), ai.WithHost("http://localhost:11434")))
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestParseStoreKind(t *testing.T) {
	tests := []struct {
		in      string
		want    StoreKind
		wantErr bool
	}{
		{in: "", want: StoreChromem},
		{in: "chromem", want: StoreChromem},
		{in: " Badger ", want: StoreBadger},
		{in: "qdrant", want: StoreQdrant},
		{in: "pinecone", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStoreKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrUnknownBackend)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenStore_RejectsBadDim(t *testing.T) {
	_, err := OpenStore(context.Background(), StoreConfig{Kind: StoreChromem})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
