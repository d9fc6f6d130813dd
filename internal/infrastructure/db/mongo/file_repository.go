package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/filevault/vault-api/internal/core/domain"
)

const filesCollection = "files"

// FileRepository is the file ledger, backed by MongoDB. Uniqueness of
// (owner_id, filename) among active rows is enforced by a partial unique
// index, so a concurrent insert losing the race surfaces as a duplicate-key
// error and is mapped to domain.ErrNameConflict.
type FileRepository struct {
	coll *mongo.Collection
}

func NewFileRepository(db *mongo.Database) *FileRepository {
	return &FileRepository{coll: db.Collection(filesCollection)}
}

type mongoFile struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Filename    string             `bson:"filename"`
	StorageKey  string             `bson:"storage_key"`
	SizeBytes   int64              `bson:"size_bytes"`
	ContentType string             `bson:"content_type,omitempty"`
	OwnerID     string             `bson:"owner_id"`
	OwnerName   string             `bson:"owner_name"`
	UploadedAt  time.Time          `bson:"uploaded_at"`
	Deleted     bool               `bson:"deleted"`
}

func toDomain(mf *mongoFile) *domain.FileRecord {
	return &domain.FileRecord{
		ID:          mf.ID.Hex(),
		Filename:    mf.Filename,
		StorageKey:  mf.StorageKey,
		SizeBytes:   mf.SizeBytes,
		ContentType: mf.ContentType,
		OwnerID:     mf.OwnerID,
		OwnerName:   mf.OwnerName,
		UploadedAt:  mf.UploadedAt,
		Deleted:     mf.Deleted,
	}
}

func activeFilter(extra bson.M) bson.M {
	filter := bson.M{"deleted": false}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

func (r *FileRepository) Insert(ctx context.Context, rec *domain.FileRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoFile{
		Filename:    rec.Filename,
		StorageKey:  rec.StorageKey,
		SizeBytes:   rec.SizeBytes,
		ContentType: rec.ContentType,
		OwnerID:     rec.OwnerID,
		OwnerName:   rec.OwnerName,
		UploadedAt:  rec.UploadedAt,
		Deleted:     false,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrNameConflict
		}
		return fmt.Errorf("insert file record: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid.Hex()
	}
	return nil
}

func (r *FileRepository) FindActive(ctx context.Context, ownerID, filename string) (*domain.FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mf mongoFile
	err := r.coll.FindOne(ctx, activeFilter(bson.M{"owner_id": ownerID, "filename": filename})).Decode(&mf)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("find file record: %w", err)
	}
	return toDomain(&mf), nil
}

func (r *FileRepository) ListActiveByOwner(ctx context.Context, ownerID string) ([]*domain.FileRecord, error) {
	return r.list(ctx, activeFilter(bson.M{"owner_id": ownerID}))
}

func (r *FileRepository) SearchActive(ctx context.Context, keyword, ownerID string) ([]*domain.FileRecord, error) {
	filter := activeFilter(bson.M{
		"filename": bson.M{"$regex": regexp.QuoteMeta(keyword), "$options": "i"},
	})
	if ownerID != "" {
		filter["owner_id"] = ownerID
	}
	return r.list(ctx, filter)
}

func (r *FileRepository) ListActive(ctx context.Context) ([]*domain.FileRecord, error) {
	return r.list(ctx, activeFilter(nil))
}

func (r *FileRepository) list(ctx context.Context, filter bson.M) ([]*domain.FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.FileRecord
	for cur.Next(ctx) {
		var mf mongoFile
		if err := cur.Decode(&mf); err != nil {
			return nil, fmt.Errorf("decode file record: %w", err)
		}
		out = append(out, toDomain(&mf))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate file records: %w", err)
	}
	return out, nil
}

func (r *FileRepository) MarkDeleted(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrFileNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"deleted": true}})
	if err != nil {
		return fmt.Errorf("mark file deleted: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) Purge(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrFileNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("purge file record: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

// EnsureIndexes creates the ledger indexes. The partial unique index scopes
// the (owner_id, filename) constraint to active rows only, so a soft-deleted
// record never blocks re-uploading its name.
func (r *FileRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "filename", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": false}),
		},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "deleted", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
