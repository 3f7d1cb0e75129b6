package model

// Document is a legal or policy article in the knowledge base
type Document struct {
	ID       string   `json:"id" bson:"id" yaml:"id"`
	Title    string   `json:"title" bson:"title" yaml:"title"`
	Category string   `json:"category" bson:"category" yaml:"category"`
	State    string   `json:"state" bson:"state" yaml:"state"`          // US state or "All"
	Platform string   `json:"platform" bson:"platform" yaml:"platform"` // Comma-separated platforms or "All"
	Content  string   `json:"content" bson:"content" yaml:"content"`
	Tags     []string `json:"tags" bson:"tags" yaml:"tags"`
}

// SearchResult is a document with its relevance score
type SearchResult struct {
	Document
	RelevanceScore float64 `json:"relevance_score"`
}

// SearchFilters narrows a knowledge base search
type SearchFilters struct {
	Category string
	State    string
	Platform string
}

// IsEmpty reports whether no filter is set
func (f SearchFilters) IsEmpty() bool {
	return f.Category == "" && f.State == "" && f.Platform == ""
}
