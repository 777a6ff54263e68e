package store

import "time"

// EmbeddingDim is the fixed length of the cleaned-layer embedding vector.
const EmbeddingDim = 384

// DefaultQualityScore is assigned to a cleaned record at derivation time.
const DefaultQualityScore = 100.0

// RawRecord is an ingested social-media post, exactly as collected.
// Once written, company, platform and content are immutable history.
type RawRecord struct {
	ID               string     `json:"id"`
	Company          string     `json:"company"`
	Platform         string     `json:"platform"`
	AuthorIdentifier *string    `json:"author_identifier,omitempty"`
	Content          string     `json:"content"`
	PostedAt         *time.Time `json:"posted_at,omitempty"`
	URL              *string    `json:"url,omitempty"`
	IngestedAt       time.Time  `json:"ingested_at"`
	Provenance       string     `json:"provenance"`
}

// CleanedRecord is the 1:1 derivation of a RawRecord, extended with the
// score fields produced by the external cleaning/embedding collaborators.
type CleanedRecord struct {
	ID               string     `json:"id"`
	Company          string     `json:"company"`
	Platform         string     `json:"platform"`
	AuthorIdentifier *string    `json:"author_identifier,omitempty"`
	Content          string     `json:"content"`
	PostedAt         *time.Time `json:"posted_at,omitempty"`
	SentimentScore   *float64   `json:"sentiment_score,omitempty"`
	Embedding        []float64  `json:"embedding,omitempty"`
	QualityScore     float64    `json:"quality_score"`
	DerivedAt        time.Time  `json:"derived_at"`
}

// AggregatedRecord is a weekly per-company rollup of cleaned records.
// It carries no personal fields.
type AggregatedRecord struct {
	WeekStart          time.Time `json:"week_start"`
	Company            string    `json:"company"`
	TotalPosts         int       `json:"total_posts"`
	PositivePosts      int       `json:"positive_posts"`
	NegativePosts      int       `json:"negative_posts"`
	TopThemes          []string  `json:"top_themes"`
	GeneratedSummaries []string  `json:"generated_summaries"`
	GeneratedAt        time.Time `json:"generated_at"`
}
