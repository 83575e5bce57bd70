// Package ingest turns standard documents into embedded, filterable chunks.
// Chunk sizing adapts to the content kind so tables, requirements, and
// procedures survive splitting intact.
package ingest

import (
	"regexp"
	"strings"
)

// ContentType classifies a block of document text for chunk sizing.
type ContentType string

const (
	ContentTable         ContentType = "table"
	ContentFigureCaption ContentType = "figure_caption"
	ContentRequirement   ContentType = "requirement"
	ContentEquation      ContentType = "equation"
	ContentProcedure     ContentType = "procedure"
	ContentList          ContentType = "list"
	ContentTechnicalSpec ContentType = "technical_spec"
	ContentGeneralText   ContentType = "general_text"
)

// chunkConfig bounds chunk sizes for one content type, in characters.
type chunkConfig struct {
	size    int
	overlap int
	maxSize int
}

var chunkConfigs = map[ContentType]chunkConfig{
	ContentTable:         {size: 2000, overlap: 100, maxSize: 3000},
	ContentFigureCaption: {size: 500, overlap: 50, maxSize: 800},
	ContentEquation:      {size: 1500, overlap: 300, maxSize: 2000},
	ContentRequirement:   {size: 1200, overlap: 200, maxSize: 1800},
	ContentProcedure:     {size: 1500, overlap: 150, maxSize: 2500},
	ContentList:          {size: 1000, overlap: 100, maxSize: 1500},
	ContentTechnicalSpec: {size: 1300, overlap: 250, maxSize: 1800},
	ContentGeneralText:   {size: 1000, overlap: 200, maxSize: 1500},
}

// detection patterns, scored per type; highest score wins.
type contentSignature struct {
	contentType ContentType
	patterns    []*regexp.Regexp
}

var contentSignatures = []contentSignature{
	{ContentTable, compileAll(
		`(?i)table\s+[\d\-.]+`,
		`\|.*\|.*\|`,
		`(?i)protection\s+scheme.*commodity`,
	)},
	{ContentFigureCaption, compileAll(
		`(?i)figure\s+[\d\-.]+`,
		`(?i)fig\.\s*[\d\-.]+`,
		`(?i)diagram\s+showing`,
		`(?i)illustration\s+of`,
	)},
	{ContentEquation, compileAll(
		`=\s*[\d.\s+\-*/()]+`,
		`(?i)calculated\s+as:`,
		`(?i)formula:`,
		`(?i)where:.*=`,
	)},
	{ContentRequirement, compileAll(
		`(?i)\bshall\b`,
		`(?i)\bmust\b`,
		`(?i)\brequired\b`,
		`(?i)not\s+less\s+than`,
		`(?i)not\s+exceed`,
	)},
	{ContentProcedure, compileAll(
		`(?i)step\s+\d+`,
		`(?m)^\d+\.\s+`,
		`(?i)procedure:`,
		`(?i)follow\s+these\s+steps`,
	)},
	{ContentList, compileAll(
		`(?m)^\s*[-*+]\s+`,
		`(?m)^\s*\d+\)\s+`,
		`(?m)^\s*[a-z]\)\s+`,
	)},
	{ContentTechnicalSpec, compileAll(
		`(?i)\d+\s*(ft|feet|m|meters)\b`,
		`(?i)\d+\s*(psi|bar|kpa)\b`,
		`(?i)\d+\s*(gpm|lpm)\b`,
		`(?i)k-factor`,
		`(?i)spacing.*\d+`,
		`(?i)pressure.*\d+`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

var (
	sentenceBoundary = regexp.MustCompile(`(?:[.!?])\s+`)
	stepBoundary     = regexp.MustCompile(`(?i)(?:step\s+\d+|\n\d+\.)`)
	requirementStart = regexp.MustCompile(`(?i)\b(?:shall|must|required|minimum|maximum)\b`)
	tableRule        = regexp.MustCompile(`[|─═]`)
)

// DocumentChunk is one sized piece of a source document.
type DocumentChunk struct {
	Content     string
	ContentType ContentType
	Index       int
	Total       int
	// PreservedWhole marks content that fit inside a single chunk.
	PreservedWhole bool
}

// Chunker splits documents adaptively by detected content type.
type Chunker struct{}

// NewChunker creates a Chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// DetectContentType scores the content against each type's signature
// patterns and returns the best match, or general text when nothing fires.
func (c *Chunker) DetectContentType(content string) ContentType {
	best := ContentGeneralText
	bestScore := 0
	for _, sig := range contentSignatures {
		score := 0
		for _, p := range sig.patterns {
			if p.MatchString(content) {
				score++
			}
		}
		if score > bestScore {
			best = sig.contentType
			bestScore = score
		}
	}
	return best
}

// Chunk splits content using the strategy for its detected type. forceType
// overrides detection when non-empty.
func (c *Chunker) Chunk(content string, forceType ContentType) []DocumentChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	contentType := forceType
	if contentType == "" {
		contentType = c.DetectContentType(content)
	}
	cfg := chunkConfigs[contentType]

	var pieces []string
	preserved := false
	switch contentType {
	case ContentTable:
		pieces, preserved = chunkTable(content, cfg)
	case ContentFigureCaption:
		if len(content) <= cfg.maxSize {
			pieces, preserved = []string{content}, true
		} else {
			pieces = splitOnSentences(content, cfg)
		}
	case ContentProcedure:
		pieces = chunkByBoundary(content, stepBoundary, cfg)
	case ContentRequirement:
		pieces = chunkByBoundary(content, requirementStart, cfg)
	default:
		pieces = splitOnSentences(content, cfg)
	}

	chunks := make([]DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, DocumentChunk{
			Content:        piece,
			ContentType:    contentType,
			Index:          i,
			Total:          len(pieces),
			PreservedWhole: preserved && len(pieces) == 1,
		})
	}
	return chunks
}

// chunkTable keeps a table whole when it fits, otherwise splits on row
// boundaries and repeats the header rows in every segment.
func chunkTable(content string, cfg chunkConfig) ([]string, bool) {
	if len(content) <= cfg.maxSize {
		return []string{content}, true
	}

	rows := strings.Split(content, "\n")
	var header []string
	for i, row := range rows {
		if i == 5 || !tableRule.MatchString(row) {
			break
		}
		header = append(header, row)
	}

	var pieces []string
	var current []string
	size := 0
	for _, row := range rows[len(header):] {
		if size+len(row) > cfg.size && len(current) > 0 {
			pieces = append(pieces, strings.Join(append(append([]string{}, header...), current...), "\n"))
			current = nil
			size = 0
		}
		current = append(current, row)
		size += len(row)
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(append(append([]string{}, header...), current...), "\n"))
	}
	return pieces, false
}

// chunkByBoundary splits at a structural boundary and packs the fragments
// up to the configured size, never splitting a fragment.
func chunkByBoundary(content string, boundary *regexp.Regexp, cfg chunkConfig) []string {
	locs := boundary.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return splitOnSentences(content, cfg)
	}

	var fragments []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			fragments = append(fragments, strings.TrimSpace(content[prev:loc[0]]))
		}
		prev = loc[0]
	}
	fragments = append(fragments, strings.TrimSpace(content[prev:]))

	var pieces []string
	var current []string
	size := 0
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		if size+len(fragment) > cfg.size && len(current) > 0 {
			pieces = append(pieces, strings.Join(current, "\n\n"))
			current = nil
			size = 0
		}
		current = append(current, fragment)
		size += len(fragment)
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, "\n\n"))
	}
	return pieces
}

// splitOnSentences packs sentences up to the configured size, carrying the
// last two sentences forward as overlap.
func splitOnSentences(content string, cfg chunkConfig) []string {
	sentences := splitSentences(content)

	var pieces []string
	var current []string
	size := 0
	for _, sentence := range sentences {
		if size+len(sentence) > cfg.size && len(current) > 0 {
			pieces = append(pieces, strings.Join(current, " "))
			if cfg.overlap > 0 && len(current) > 1 {
				current = current[len(current)-2:]
			} else {
				current = nil
			}
			size = 0
			for _, s := range current {
				size += len(s)
			}
		}
		current = append(current, sentence)
		size += len(sentence)
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}
	return pieces
}

func splitSentences(content string) []string {
	locs := sentenceBoundary.FindAllStringIndex(content, -1)
	var sentences []string
	prev := 0
	for _, loc := range locs {
		sentences = append(sentences, strings.TrimSpace(content[prev:loc[1]]))
		prev = loc[1]
	}
	if prev < len(content) {
		tail := strings.TrimSpace(content[prev:])
		if tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}
