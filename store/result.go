package store

// SourceType constants for retrieved chunks.
const (
	SourceTypeTable      = "table"
	SourceTypeFigure     = "figure"
	SourceTypeText       = "text"
	SourceTypeRegulation = "regulation"
)

// SearchResult is a retrieved candidate chunk. The store owns the raw fields;
// downstream stages attach derived scores without mutating them.
type SearchResult struct {
	ID                string
	SourceID          string
	SourceType        string // table, figure, text, regulation
	Content           string
	Similarity        float64 // raw similarity or combined score in [0,1]
	ASRSTopic         string
	RegulationSection string
	DesignParameter   string
	TableNumber       string
	FigureNumber      string
	ReferenceTitle    string
	Metadata          map[string]any
}

// Reference is a table/figure pointer returned by topic lookup.
type Reference struct {
	Type      string  `json:"type"` // table or figure
	Number    string  `json:"number"`
	Title     string  `json:"title"`
	Section   string  `json:"section,omitempty"`
	Relevance float64 `json:"relevance"`
}

// Chunk is a unit of ingested content with its embedding.
type Chunk struct {
	ID           string
	SourceID     string
	SourceType   string
	Content      string
	Embedding    []float32
	ASRSTopic    string
	Section      string
	TableNumber  string
	FigureNumber string
	Metadata     map[string]any
}
