// Package evidence validates and stores files uploaded to support an appeal.
package evidence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ppiankov/gigshield/internal/model"
)

var (
	// ErrUnsupportedType is returned for content types outside the allow list
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge is returned for uploads above the size limit
	ErrTooLarge = errors.New("file too large")
)

// Storage persists accepted files
type Storage interface {
	Save(ctx context.Context, uid, filename, contentType string, data []byte) (model.EvidenceItem, error)
}

// Service checks uploads and hands them to a Storage
type Service struct {
	storage  Storage
	maxBytes int64
}

// NewService creates a service. A non-positive maxBytes uses 10 MiB.
func NewService(storage Storage, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = model.MaxEvidenceBytes
	}
	return &Service{storage: storage, maxBytes: maxBytes}
}

// MaxBytes returns the upload size limit
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Accept validates an upload read from r and stores it for uid
func (s *Service) Accept(ctx context.Context, uid, filename, contentType string, r io.Reader) (model.EvidenceItem, error) {
	if err := CheckType(contentType); err != nil {
		return model.EvidenceItem{}, err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return model.EvidenceItem{}, fmt.Errorf("read upload: %w", err)
	}
	if n > s.maxBytes {
		return model.EvidenceItem{}, ErrTooLarge
	}

	data := buf.Bytes()
	if err := CheckContent(data); err != nil {
		return model.EvidenceItem{}, err
	}
	return s.storage.Save(ctx, uid, filename, contentType, data)
}

// CheckType validates a declared content type
func CheckType(contentType string) error {
	if !allowed(contentType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return nil
}

// CheckContent sniffs data and rejects content that is not an allowed type,
// whatever the client declared
func CheckContent(data []byte) error {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if allowed(m.String()) {
			return nil
		}
	}
	return fmt.Errorf("%w: content looks like %s", ErrUnsupportedType, detected.String())
}

func allowed(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	return slices.Contains(model.AllowedEvidenceTypes, strings.ToLower(strings.TrimSpace(base)))
}
