package filesystem

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/confirm"
	"github.com/GriffinCanCode/fsguard/internal/security"
)

// Options controls conflict handling for operations that create a destination.
type Options struct {
	Overwrite  bool
	CreateDirs bool
}

// DefaultOptions returns overwrite=false, createDirs=true.
func DefaultOptions() Options {
	return Options{CreateDirs: true}
}

// OperationResult is the outcome of a single-file operation
type OperationResult struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FileInfo represents file metadata
type FileInfo struct {
	Path        string    `json:"path"`
	Name        string    `json:"basename"`
	Extension   string    `json:"extension,omitempty"`
	Size        int64     `json:"size"`
	SizeHuman   string    `json:"sizeHuman"`
	IsDirectory bool      `json:"isDirectory"`
	IsFile      bool      `json:"isFile"`
	IsSymlink   bool      `json:"isSymlink"`
	LinkTarget  string    `json:"linkTarget,omitempty"`
	Permissions string    `json:"permissions"`
	MimeType    string    `json:"mimeType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	AccessedAt  time.Time `json:"accessedAt"`
}

// DirEntry is one list-directory row. Size, Mode and ModifiedAt are only set when
// details are requested.
type DirEntry struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Size       *int64     `json:"size,omitempty"`
	Mode       string     `json:"mode,omitempty"`
	ModifiedAt *time.Time `json:"modifiedAt,omitempty"`
}

// Entry types
const (
	EntryDirectory = "directory"
	EntryFile      = "file"
	EntrySymlink   = "symlink"
	EntryOther     = "other"
)

// DirectorySize summarizes a recursive walk.
type DirectorySize struct {
	Path        string `json:"path"`
	Bytes       int64  `json:"bytes"`
	Files       int64  `json:"files"`
	Directories int64  `json:"directories"`
	Human       string `json:"size"`
}

// FilesystemOps holds the collaborators every operation needs. All paths pass through
// Auth before any I/O; force-mode actions pass through Guard.
type FilesystemOps struct {
	Auth       *security.Authorizer
	Classifier *security.Classifier
	Guard      *confirm.Guard
	Logger     *zap.Logger

	// OnBatch, when set, receives the per-item totals of every finished batch.
	OnBatch func(operation string, succeeded, failed int)

	goos string
}

// NewOps creates the operation core. A nil guard fails closed.
func NewOps(auth *security.Authorizer, guard *confirm.Guard, logger *zap.Logger) *FilesystemOps {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = confirm.NewGuard(auth.Policy(), confirm.FailClosed{}, confirm.WithLogger(logger))
	}
	return &FilesystemOps{
		Auth:       auth,
		Classifier: security.DefaultClassifier(),
		Guard:      guard,
		Logger:     logger,
		goos:       runtime.GOOS,
	}
}

// Policy returns the active security policy.
func (ops *FilesystemOps) Policy() *security.Policy {
	return ops.Auth.Policy()
}

func success(message string, details map[string]interface{}) *OperationResult {
	return &OperationResult{Success: true, Message: message, Details: details}
}
