package model

// EvidenceItem is a single uploaded file attached to a case
type EvidenceItem struct {
	URL         string  `json:"url" bson:"url" yaml:"url"`                                  // Public download URL
	Filename    string  `json:"filename" bson:"filename" yaml:"filename"`                   // Original filename
	ContentType string  `json:"contentType" bson:"contentType" yaml:"content_type"`         // Declared MIME type
	Size        int64   `json:"size,omitempty" bson:"size,omitempty" yaml:"size,omitempty"` // Bytes
	UploadedAt  Instant `json:"uploadedAt,omitempty" bson:"uploadedAt" yaml:"uploaded_at"`  // When it was stored
}

// AllowedEvidenceTypes lists the MIME types accepted for evidence uploads
var AllowedEvidenceTypes = []string{
	"image/jpeg",
	"image/png",
	"image/jpg",
	"image/heic",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// MaxEvidenceBytes is the upload size ceiling (10 MiB)
const MaxEvidenceBytes = 10 * 1024 * 1024
