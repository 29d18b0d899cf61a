package docrag

// Metadata keys produced by the ingestion pipeline.
const (
	MetaPage           = "page"            // source page number (string)
	MetaTopic          = "topic"           // detected topic (string)
	MetaParentID       = "parent_id"       // owning parent document id (string)
	MetaPath           = "path"            // source path or URL (string)
	MetaKnowledgeBases = "knowledge_bases" // tags ([]string)
)

// Metadata annotates a document or chunk. Keys are unique; insertion order
// is irrelevant.
type Metadata map[string]any

// Clone returns a deep copy. Derived chunks carry cloned metadata so that
// mutating a child never affects its parent (and vice versa).
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if tags, ok := v.([]string); ok {
			cp := make([]string, len(tags))
			copy(cp, tags)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// String returns the value for key if it is a string, or "" otherwise.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Document is the unit flowing through the pipeline: a piece of text plus
// metadata. Both full parent documents and derived chunks use this type.
type Document struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// NewDocument creates a Document with its own copy of meta.
func NewDocument(text string, meta Metadata) Document {
	return Document{Text: text, Metadata: meta.Clone()}
}

// ScoredDocument is a similarity search hit. Score is in [0, 1]; higher
// means more relevant.
type ScoredDocument struct {
	Document
	Score float32 `json:"score"`
}

// SearchRequest describes a similarity search. Threshold filters hits whose
// score falls below it; zero disables the filter.
type SearchRequest struct {
	Query     string
	TopK      int
	Threshold float32
}
