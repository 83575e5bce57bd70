package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectContentType(t *testing.T) {
	chunker := NewChunker()

	tests := []struct {
		name    string
		content string
		want    ContentType
	}{
		{
			name:    "table by number and pipes",
			content: "Table 2-1\n| depth | width | height |\n| 3 ft | 8 ft | 20 ft |",
			want:    ContentTable,
		},
		{
			name:    "figure caption",
			content: "Figure 4.2 diagram showing the in-rack sprinkler layout.",
			want:    ContentFigureCaption,
		},
		{
			name:    "requirement language",
			content: "Sprinklers shall be installed at each tier. Clearance must not be less than required and shall not exceed the listed maximum.",
			want:    ContentRequirement,
		},
		{
			name:    "procedure",
			content: "Procedure: follow these steps.\nStep 1 isolate the zone.\nStep 2 drain the line.",
			want:    ContentProcedure,
		},
		{
			name:    "technical spec",
			content: "Design for 30 psi at 60 gpm with sprinkler spacing of 8 ft and a k-factor of 25.2.",
			want:    ContentTechnicalSpec,
		},
		{
			name:    "plain prose",
			content: "Warehouse automation has grown considerably over the past decade.",
			want:    ContentGeneralText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunker.DetectContentType(tt.content))
		})
	}
}

func TestChunkSmallTablePreservedWhole(t *testing.T) {
	chunker := NewChunker()
	content := "Table 3-2\n| scheme | commodity |\n| wet | cartoned |"

	chunks := chunker.Chunk(content, "")
	require.Len(t, chunks, 1)
	assert.Equal(t, ContentTable, chunks[0].ContentType)
	assert.True(t, chunks[0].PreservedWhole)
	assert.Equal(t, content, chunks[0].Content)
}

func TestChunkLargeTableRepeatsHeader(t *testing.T) {
	chunker := NewChunker()

	var b strings.Builder
	b.WriteString("| depth | width | flow |\n")
	row := "| " + strings.Repeat("3 ft ", 30) + "|\n"
	for i := 0; i < 40; i++ {
		b.WriteString(row)
	}

	chunks := chunker.Chunk(b.String(), ContentTable)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk.Content, "| depth | width | flow |"))
		assert.False(t, chunk.PreservedWhole)
	}
}

func TestChunkEmptyContent(t *testing.T) {
	chunker := NewChunker()
	assert.Nil(t, chunker.Chunk("   \n  ", ""))
}

func TestChunkIndexing(t *testing.T) {
	chunker := NewChunker()

	sentence := "This warehouse stores cartoned unexpanded plastics on racks. "
	content := strings.Repeat(sentence, 60)

	chunks := chunker.Chunk(content, ContentGeneralText)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, len(chunks), chunk.Total)
	}
}

func TestChunkSentenceOverlap(t *testing.T) {
	chunker := NewChunker()

	sentence := "Aisle widths depend on rack depth and commodity class stored within. "
	content := strings.Repeat(sentence, 40)

	chunks := chunker.Chunk(content, ContentGeneralText)
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share carried-over sentences.
	first := strings.TrimSpace(chunks[0].Content)
	second := strings.TrimSpace(chunks[1].Content)
	tail := first[len(first)-len(strings.TrimSpace(sentence)):]
	assert.Contains(t, second, tail)
}

func TestChunkRequirementPacking(t *testing.T) {
	chunker := NewChunker()

	req := "Sprinklers shall be hydraulically calculated for the most remote design area with adequate supply margin and documented in the acceptance package. "
	content := strings.Repeat(req, 30)

	chunks := chunker.Chunk(content, ContentRequirement)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), chunkConfigs[ContentRequirement].maxSize)
		assert.Contains(t, strings.ToLower(chunk.Content), "shall")
	}
}
