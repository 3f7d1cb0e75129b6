package evidence

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/gigshield/internal/model"
)

// LocalStorage writes evidence under a directory and serves it from baseURL
type LocalStorage struct {
	dir     string
	baseURL string
	now     func() time.Time
}

// NewLocalStorage creates storage rooted at dir
func NewLocalStorage(dir, baseURL string) *LocalStorage {
	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// Dir returns the storage root
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Save writes data to <dir>/<uid>/<uuid>-<name>
func (s *LocalStorage) Save(_ context.Context, uid, filename, contentType string, data []byte) (model.EvidenceItem, error) {
	owner := safeName(uid)
	if owner == "" {
		return model.EvidenceItem{}, fmt.Errorf("invalid user id %q", uid)
	}
	name := safeName(filename)
	if name == "" {
		name = "evidence"
	}
	stored := uuid.NewString() + "-" + name

	userDir := filepath.Join(s.dir, owner)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return model.EvidenceItem{}, fmt.Errorf("create evidence directory: %w", err)
	}

	target := filepath.Join(userDir, stored)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return model.EvidenceItem{}, fmt.Errorf("write evidence: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return model.EvidenceItem{}, fmt.Errorf("write evidence: %w", err)
	}

	return model.EvidenceItem{
		URL:         s.baseURL + "/" + path.Join(url.PathEscape(owner), url.PathEscape(stored)),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  model.InstantOf(s.now()),
	}, nil
}

// safeName strips directories and characters that do not belong in a file name
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
}
