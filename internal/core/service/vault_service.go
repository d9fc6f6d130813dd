package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/filevault/vault-api/internal/core/domain"
	"github.com/filevault/vault-api/internal/core/ports"
)

// VaultService orchestrates the file lifecycle against the ledger and the
// blob store. It is the only writer of file records.
type VaultService struct {
	files  ports.FileRepository
	blobs  ports.BlobStore
	users  ports.UserRepository
	locks  keyLock
	logger zerolog.Logger
}

func NewVaultService(files ports.FileRepository, blobs ports.BlobStore, users ports.UserRepository, logger zerolog.Logger) *VaultService {
	return &VaultService{files: files, blobs: blobs, users: users, logger: logger}
}

// slotKey identifies the logical (owner, filename) slot for serialisation.
func slotKey(ownerID, filename string) string {
	return ownerID + "\x00" + filename
}

// Upload stores a file for the caller. The whole check-remove-write-insert
// sequence for one (owner, filename) slot runs under a per-key lock so that
// concurrent uploads of the same name resolve to exactly one winner.
func (s *VaultService) Upload(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
	mu := s.locks.acquire(slotKey(caller.UserID, in.Filename))
	defer mu.Unlock()

	// 1. Look up the active record occupying the slot.
	existing, err := s.files.FindActive(ctx, caller.UserID, in.Filename)
	replaced := false
	switch {
	case err == nil:
		if !in.Overwrite {
			return nil, domain.ErrNameConflict
		}
		// 2. Replace, not version: the old blob and row go away first.
		if err := s.blobs.Remove(ctx, existing.StorageKey); err != nil {
			s.logger.Error().Err(err).Str("storage_key", existing.StorageKey).Msg("failed to remove replaced blob")
			return nil, domain.ErrStorageUnavailable
		}
		if err := s.files.Purge(ctx, existing.ID); err != nil {
			return nil, err
		}
		replaced = true
	case errors.Is(err, domain.ErrFileNotFound):
		// Fresh slot.
	default:
		return nil, err
	}

	// 3. Write the bytes at a fresh location.
	key := uuid.NewString()
	if err := s.blobs.Put(ctx, key, in.Content, in.Size, in.ContentType); err != nil {
		s.logger.Error().Err(err).Str("filename", in.Filename).Msg("blob write failed")
		return nil, domain.ErrStorageUnavailable
	}

	// 4. Insert the ledger record. If this fails the blob is orphaned and
	// must be cleaned up before surfacing the failure.
	now := time.Now().UTC()
	rec := &domain.FileRecord{
		Filename:    in.Filename,
		StorageKey:  key,
		SizeBytes:   in.Size,
		ContentType: in.ContentType,
		OwnerID:     caller.UserID,
		OwnerName:   caller.Username,
		UploadedAt:  now,
	}
	if err := s.files.Insert(ctx, rec); err != nil {
		if rmErr := s.blobs.Remove(ctx, key); rmErr != nil {
			s.logger.Error().Err(rmErr).Str("storage_key", key).Msg("orphaned blob cleanup failed")
		}
		return nil, err
	}

	s.logger.Info().
		Str("owner", caller.Username).
		Str("filename", in.Filename).
		Int64("size_bytes", in.Size).
		Bool("replaced", replaced).
		Msg("file uploaded")

	return &ports.UploadResult{
		Filename:   in.Filename,
		SizeBytes:  in.Size,
		UploadedAt: now,
		Replaced:   replaced,
	}, nil
}

// List returns the caller's active filenames.
func (s *VaultService) List(ctx context.Context, caller ports.Identity) ([]string, error) {
	recs, err := s.files.ListActiveByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.Filename)
	}
	return names, nil
}

// Search matches active filenames case-insensitively. Admins search all
// owners and see owner names; users search their own files only, and the
// descriptors carry no owner field.
func (s *VaultService) Search(ctx context.Context, caller ports.Identity, keyword string) ([]ports.FileDescriptor, error) {
	admin := caller.Role == domain.RoleAdmin
	ownerID := caller.UserID
	if admin {
		ownerID = ""
	}

	recs, err := s.files.SearchActive(ctx, keyword, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]ports.FileDescriptor, 0, len(recs))
	for _, r := range recs {
		d := ports.FileDescriptor{
			Filename:   r.Filename,
			SizeBytes:  r.SizeBytes,
			UploadedAt: r.UploadedAt,
		}
		if admin {
			d.Owner = r.OwnerName
		}
		out = append(out, d)
	}
	return out, nil
}

// Download streams the caller's file. A file owned by someone else, or one
// that is soft-deleted, reads as not found; existence is never confirmed to
// non-owners.
func (s *VaultService) Download(ctx context.Context, caller ports.Identity, filename string) (*ports.DownloadResult, error) {
	rec, err := s.files.FindActive(ctx, caller.UserID, filename)
	if err != nil {
		return nil, err
	}

	rc, err := s.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		s.logger.Error().Err(err).Str("storage_key", rec.StorageKey).Str("filename", filename).Msg("blob read failed for live record")
		return nil, domain.ErrStorageUnavailable
	}

	return &ports.DownloadResult{
		Filename:    rec.Filename,
		Content:     rc,
		SizeBytes:   rec.SizeBytes,
		ContentType: rec.ContentType,
	}, nil
}

// Delete removes the caller's file. Soft delete flips the flag and keeps the
// blob as a recovery buffer; hard delete removes the blob and marks the row
// deleted in the same step (the row is retained for audit).
func (s *VaultService) Delete(ctx context.Context, caller ports.Identity, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
	return s.deleteOwned(ctx, caller.UserID, filename, confirm, hard)
}

// DeleteAll applies delete semantics to every active record of the caller.
func (s *VaultService) DeleteAll(ctx context.Context, caller ports.Identity, confirm, hard bool) (int, error) {
	return s.deleteAllOwned(ctx, caller.UserID, confirm, hard)
}

// AdminDelete deletes a file of an explicit target user. An unknown target
// reads as file-not-found.
func (s *VaultService) AdminDelete(ctx context.Context, targetUsername, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
	target, err := s.users.FindByUsername(ctx, targetUsername)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	return s.deleteOwned(ctx, target.ID, filename, confirm, hard)
}

// AdminDeleteAll deletes every active record of an explicit target user.
func (s *VaultService) AdminDeleteAll(ctx context.Context, targetUsername string, confirm, hard bool) (int, error) {
	target, err := s.users.FindByUsername(ctx, targetUsername)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return 0, domain.ErrFileNotFound
		}
		return 0, err
	}
	return s.deleteAllOwned(ctx, target.ID, confirm, hard)
}

// AdminListAll returns every active record with its owner.
func (s *VaultService) AdminListAll(ctx context.Context) ([]ports.FileDescriptor, error) {
	recs, err := s.files.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ports.FileDescriptor, 0, len(recs))
	for _, r := range recs {
		out = append(out, ports.FileDescriptor{
			Filename:   r.Filename,
			Owner:      r.OwnerName,
			SizeBytes:  r.SizeBytes,
			UploadedAt: r.UploadedAt,
		})
	}
	return out, nil
}

func (s *VaultService) deleteOwned(ctx context.Context, ownerID, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
	mu := s.locks.acquire(slotKey(ownerID, filename))
	defer mu.Unlock()

	rec, err := s.files.FindActive(ctx, ownerID, filename)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return nil, domain.ErrConfirmationRequired
	}

	if err := s.deleteRecord(ctx, rec, hard); err != nil {
		return nil, err
	}
	return &ports.DeleteResult{Filename: filename, Hard: hard}, nil
}

func (s *VaultService) deleteAllOwned(ctx context.Context, ownerID string, confirm, hard bool) (int, error) {
	if !confirm {
		return 0, domain.ErrConfirmationRequired
	}

	recs, err := s.files.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rec := range recs {
		// Each record is processed independently; one failure must not
		// abort the remaining deletions.
		if err := s.deleteRecord(ctx, rec, hard); err != nil {
			s.logger.Error().Err(err).
				Str("filename", rec.Filename).
				Str("owner", rec.OwnerName).
				Msg("delete failed, continuing")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *VaultService) deleteRecord(ctx context.Context, rec *domain.FileRecord, hard bool) error {
	if hard {
		if err := s.blobs.Remove(ctx, rec.StorageKey); err != nil {
			s.logger.Error().Err(err).Str("storage_key", rec.StorageKey).Msg("blob removal failed")
			return domain.ErrStorageUnavailable
		}
	}
	return s.files.MarkDeleted(ctx, rec.ID)
}
