package ports

import (
	"context"
	"io"
	"time"
)

// Identity is the resolved caller of a request: established once by the
// identity middleware and threaded explicitly into every service call.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// UploadInput carries all data needed to store one file.
type UploadInput struct {
	Filename    string
	Content     io.Reader
	Size        int64
	ContentType string
	// Overwrite allows replacing an existing active file of the same name.
	Overwrite bool
}

// UploadResult is returned by the service after storing a file.
type UploadResult struct {
	Filename   string
	SizeBytes  int64
	UploadedAt time.Time
	// Replaced is true when an existing active file was overwritten.
	Replaced bool
}

// FileDescriptor is the search/list view of a file. Owner is populated only
// when the caller holds the admin role.
type FileDescriptor struct {
	Filename   string
	Owner      string
	SizeBytes  int64
	UploadedAt time.Time
}

// DownloadResult streams a stored file back to the caller. Content must be
// closed by the caller.
type DownloadResult struct {
	Filename    string
	Content     io.ReadCloser
	SizeBytes   int64
	ContentType string
}

// DeleteResult reports a completed delete.
type DeleteResult struct {
	Filename string
	Hard     bool
}

// VaultService defines the ownership-scoped file lifecycle operations.
type VaultService interface {
	Upload(ctx context.Context, caller Identity, in UploadInput) (*UploadResult, error)
	List(ctx context.Context, caller Identity) ([]string, error)
	Search(ctx context.Context, caller Identity, keyword string) ([]FileDescriptor, error)
	Download(ctx context.Context, caller Identity, filename string) (*DownloadResult, error)
	Delete(ctx context.Context, caller Identity, filename string, confirm, hard bool) (*DeleteResult, error)
	// DeleteAll returns the number of records deleted. Per-record failures
	// are logged and skipped, never short-circuited.
	DeleteAll(ctx context.Context, caller Identity, confirm, hard bool) (int, error)

	// Admin variants take an explicit target owner and bypass the
	// owner-equals-caller binding. RBAC guarantees the caller is an admin.
	AdminDelete(ctx context.Context, targetUsername, filename string, confirm, hard bool) (*DeleteResult, error)
	AdminDeleteAll(ctx context.Context, targetUsername string, confirm, hard bool) (int, error)
	AdminListAll(ctx context.Context) ([]FileDescriptor, error)
}
