package ports

import (
	"context"

	"github.com/filevault/vault-api/internal/core/domain"
)

// FileRepository defines persistence operations for the file ledger.
//
// "Active" always means Deleted == false. Uniqueness of (owner, filename) is
// enforced by the store across active records only; Insert surfaces a
// violation as domain.ErrNameConflict so that a lost race on concurrent
// uploads degrades to a normal conflict instead of a fatal error.
type FileRepository interface {
	Insert(ctx context.Context, rec *domain.FileRecord) error
	// FindActive retrieves the active record for (ownerID, filename).
	// Returns domain.ErrFileNotFound when no such record exists.
	FindActive(ctx context.Context, ownerID, filename string) (*domain.FileRecord, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]*domain.FileRecord, error)
	// SearchActive returns active records whose filename contains keyword
	// (case-insensitive). When ownerID is non-empty the search is scoped to
	// that owner; empty means all owners (admin scope).
	SearchActive(ctx context.Context, keyword, ownerID string) ([]*domain.FileRecord, error)
	// ListActive returns every active record regardless of owner.
	ListActive(ctx context.Context) ([]*domain.FileRecord, error)
	// MarkDeleted flips the deleted flag; the row is retained for audit.
	MarkDeleted(ctx context.Context, id string) error
	// Purge removes the row entirely (overwrite replaces the slot).
	Purge(ctx context.Context, id string) error
}
