package domain

import (
	"errors"
	"time"
)

var ErrFileNotFound = errors.New("file not found")
var ErrNameConflict = errors.New("file name already in use")
var ErrConfirmationRequired = errors.New("confirmation required")
var ErrForbidden = errors.New("access forbidden")
var ErrStorageUnavailable = errors.New("storage unavailable")

// FileRecord is one logical file owned by exactly one user. StorageKey is an
// opaque locator into the blob store; the record does not manage blob
// lifetime. Among records with Deleted == false, (OwnerID, Filename) is
// unique; a soft-deleted record may share its name with a live one.
type FileRecord struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Filename    string    `json:"filename" bson:"filename"`
	StorageKey  string    `json:"-" bson:"storage_key"`
	SizeBytes   int64     `json:"size_bytes" bson:"size_bytes"`
	ContentType string    `json:"content_type,omitempty" bson:"content_type,omitempty"`
	OwnerID     string    `json:"owner_id" bson:"owner_id"`
	OwnerName   string    `json:"owner_name" bson:"owner_name"`
	UploadedAt  time.Time `json:"uploaded_at" bson:"uploaded_at"`
	Deleted     bool      `json:"deleted" bson:"deleted"`
}
