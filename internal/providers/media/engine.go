package media

import "context"

// Embedded binary tags understood by every engine.
const (
	TagThumbnail = "ThumbnailImage"
	TagPreview   = "PreviewImage"
)

// Tags is the metadata of one file keyed by tag name.
type Tags map[string]interface{}

// Engine reads and edits embedded media metadata. Paths handed to an engine are
// already authorized.
type Engine interface {
	Read(ctx context.Context, path string) (Tags, error)
	Write(ctx context.Context, path string, tags map[string]string) error
	Delete(ctx context.Context, path string, tags []string) error
	// Binary returns the raw bytes of an embedded binary tag, or nil when the file
	// carries none.
	Binary(ctx context.Context, path, tag string) ([]byte, error)
}
