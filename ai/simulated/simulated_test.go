package simulated

import (
	"context"
	"testing"

	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	vs, err := p.Embedder().EmbedTexts(ctx, []string{
		"the quarterly budget review",
		"budget review for the quarter",
		"kubernetes ingress certificates",
	})
	require.NoError(t, err)
	require.Len(t, vs, 3)
	for _, v := range vs {
		assert.Len(t, v, Dim)
	}

	again, err := p.Embedder().EmbedText(ctx, "the quarterly budget review")
	require.NoError(t, err)
	assert.Equal(t, vs[0], again)

	assert.Greater(t, vector.Cosine(vs[0], vs[1]), vector.Cosine(vs[0], vs[2]))
}

func TestEmbedder_TokenlessText(t *testing.T) {
	e := NewProvider().Embedder()
	ctx := context.Background()

	bang, err := e.EmbedText(ctx, "!!!")
	require.NoError(t, err)
	question, err := e.EmbedText(ctx, "???")
	require.NoError(t, err)
	words, err := e.EmbedText(ctx, "budget review")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, vector.Cosine(bang, question), 1e-6)
	assert.Less(t, vector.Cosine(bang, words), float32(1.0))
	assert.NotZero(t, vector.Cosine(bang, bang))
}

func TestMetadataExtractor(t *testing.T) {
	p := NewProvider()

	md, err := p.MetadataExtractor().ExtractMetadata(context.Background(),
		"Kickoff for Project Apollo. We reviewed the budget and the revenue forecast.")
	require.NoError(t, err)
	assert.Equal(t, "Apollo", md.ProjectName)
	assert.Equal(t, "Finance", md.Department)
	assert.Empty(t, md.SearchString)

	md, err = p.MetadataExtractor().ExtractMetadata(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Empty(t, md.ProjectName)
	assert.Empty(t, md.Department)
}

func TestInsightsGenerator(t *testing.T) {
	p := NewProvider()
	transcript := "Alice will send the report by Friday. Bob agreed to review the budget.\n" +
		"Carol: I'll book the venue.\nThe team decided to ship on Monday. Nice weather today."

	insights, err := p.InsightsGenerator().GenerateInsights(context.Background(), transcript, "")
	require.NoError(t, err)

	assert.NotEmpty(t, insights.Overview)
	assert.Equal(t, []core.ToDoItem{
		{Person: "Alice", Task: "send the report by Friday", Type: core.ItemTypeAction},
		{Person: "Bob", Task: "review the budget", Type: core.ItemTypeAction},
		{Person: "Carol", Task: "book the venue", Type: core.ItemTypeAction},
		{Person: "Team", Task: "The team decided to ship on Monday", Type: core.ItemTypeTakeaway},
	}, insights.ToDoList)
}

func TestInsightsGenerator_NotesContext(t *testing.T) {
	g := InsightsGenerator{}

	without, err := g.GenerateInsights(context.Background(), "We met.", "no context")
	require.NoError(t, err)
	with, err := g.GenerateInsights(context.Background(), "We met.", "Context #1: earlier meeting")
	require.NoError(t, err)

	assert.NotContains(t, without.Overview, "prior meetings")
	assert.Contains(t, with.Overview, "prior meetings")
}
