package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SourceType is the closed set of content origins the pipeline accepts.
type SourceType string

const (
	SourceArticle  SourceType = "article"
	SourceVideo    SourceType = "video"
	SourceBlog     SourceType = "blog"
	SourceDocument SourceType = "document"
	SourceAudio    SourceType = "audio"
)

// SourceTypes lists every valid tag, in declaration order.
func SourceTypes() []SourceType {
	return []SourceType{SourceArticle, SourceVideo, SourceBlog, SourceDocument, SourceAudio}
}

// ValidSourceType reports whether s is a member of the closed enum.
func ValidSourceType(s SourceType) bool {
	switch s {
	case SourceArticle, SourceVideo, SourceBlog, SourceDocument, SourceAudio:
		return true
	}
	return false
}

// Insight is a single model-generated observation with its confidence and
// the evidence it rests on. Insights exist only inside a Summary.
type Insight struct {
	Insight            string  `json:"insight"`
	Confidence         float64 `json:"confidence"` // in [0,1], enforced at validation
	SupportingEvidence string  `json:"supporting_evidence"`
}

// InsightSlice stores insights as a JSON column.
type InsightSlice []Insight

func (s InsightSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Insight(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *InsightSlice) Scan(value interface{}) error {
	if s == nil {
		return fmt.Errorf("models.InsightSlice: Scan on nil pointer")
	}
	if value == nil {
		*s = InsightSlice{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models.InsightSlice: unsupported Scan type %T", value)
	}
	if len(raw) == 0 {
		*s = InsightSlice{}
		return nil
	}
	return json.Unmarshal(raw, (*[]Insight)(s))
}

// SummaryMetadata describes the processing that produced a summary.
// ContentType always reflects the declared source type; the engine
// overwrites whatever the generative step claims.
type SummaryMetadata struct {
	WordCount      int        `json:"word_count"      gorm:"column:meta_word_count"`
	ProcessingTime int64      `json:"processing_time" gorm:"column:meta_processing_time"` // ms
	ContentType    SourceType `json:"content_type"    gorm:"column:meta_content_type;type:varchar(16)"`
}

// SummaryModel is the structured summary artifact. The engine leaves ID,
// UserID, SourceURL, IsPublic and the timestamps for the persistence
// gateway to assign.
type SummaryModel struct {
	Base
	UserID    string          `json:"user_id"    gorm:"index;not null"`
	Title     string          `json:"title"      gorm:"not null"`
	Content   string          `json:"-"          gorm:"type:longtext"` // normalized source text, kept for embedding
	Abstract  string          `json:"abstract,omitempty" gorm:"type:text"`
	KeyPoints StringSlice     `json:"key_points" gorm:"type:json"`
	Themes    StringSlice     `json:"themes"     gorm:"type:json"`
	Insights  InsightSlice    `json:"insights"   gorm:"type:json"`
	Metadata  SummaryMetadata `json:"metadata"   gorm:"embedded"`
	SourceURL string          `json:"source_url"`
	IsPublic  bool            `json:"is_public"  gorm:"default:false"`
}

func (SummaryModel) TableName() string { return "summaries" }

// EmbeddingText is the representation handed to the embedding service:
// title plus content, matching what similarity is defined over.
func (s *SummaryModel) EmbeddingText() string {
	if s.Content == "" {
		return s.Title
	}
	return s.Title + " " + s.Content
}

// SummaryRelationshipModel is a directed edge from a summary to a related
// one. Strength is the cosine similarity at the time the edge was computed.
type SummaryRelationshipModel struct {
	Base
	SummaryID        string  `json:"summary_id"         gorm:"uniqueIndex:idx_summary_related;not null"`
	RelatedSummaryID string  `json:"related_summary_id" gorm:"uniqueIndex:idx_summary_related;not null"`
	Strength         float64 `json:"strength"           gorm:"not null"`
}

func (SummaryRelationshipModel) TableName() string { return "summary_relationships" }
