// Package media inserts placeholder blocks for files added to a document, uploads
// the files in the background and points the placeholders at their persisted URLs.
package media

import (
	"context"
	"encoding/hex"
	"path"
	"strings"

	"golang.org/x/crypto/blake2b"

	"notefiber-editor/pkg/document"
)

// File is a file picked or dropped by the user.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is what a storage backend returns for a stored file.
type Result struct {
	URL string `json:"url"`
}

// Storage persists uploaded files. scope groups uploads, typically by note id.
type Storage interface {
	Upload(ctx context.Context, f File, scope string) (Result, error)
}

// ObjectKey derives a content-addressed object name for f under scope. Uploading
// the same bytes twice yields the same key.
func ObjectKey(f File, scope string) string {
	sum := blake2b.Sum256(f.Data)
	key := hex.EncodeToString(sum[:])
	if ext := strings.ToLower(path.Ext(f.Name)); ext != "" {
		key += ext
	}
	if scope != "" {
		key = strings.Trim(scope, "/") + "/" + key
	}
	return key
}

// KindOf picks the void block type for a file from its content type.
func KindOf(contentType string) document.BlockType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return document.TypeImage
	case strings.HasPrefix(contentType, "video/"):
		return document.TypeVideo
	default:
		return document.TypeFile
	}
}
