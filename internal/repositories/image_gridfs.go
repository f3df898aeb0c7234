package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ImagesBucket is the GridFS bucket holding product images.
const ImagesBucket = "images"

// GridFSImageStore stores images in a MongoDB GridFS bucket, using the object
// path as the GridFS filename.
type GridFSImageStore struct {
	db *mongo.Database
}

// NewGridFSImageStore creates a GridFSImageStore on db.
func NewGridFSImageStore(db *mongo.Database) *GridFSImageStore {
	return &GridFSImageStore{db: db}
}

// bucket opens a bucket whose deadlines follow ctx. Buckets carry their
// deadlines as state, so each call gets its own.
func (s *GridFSImageStore) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(ImagesBucket))
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", ImagesBucket, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := b.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
		if err := b.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *GridFSImageStore) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "contentType", Value: contentType},
		{Key: "uploadedAt", Value: time.Now().UTC()},
	})
	if _, err := b.UploadFromStream(path, r, opts); err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return nil
}

func (s *GridFSImageStore) Open(ctx context.Context, path string) (io.ReadCloser, string, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, "", err
	}
	stream, err := b.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", fmt.Errorf("%s: %w", path, models.ErrImageNotFound)
		}
		return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	contentType := "application/octet-stream"
	if file := stream.GetFile(); file != nil && file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}
	return stream, contentType, nil
}

// Delete removes every revision stored under path.
func (s *GridFSImageStore) Delete(ctx context.Context, path string) error {
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	cursor, err := b.Find(bson.M{"filename": path})
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", path, err)
	}
	defer cursor.Close(ctx)

	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return fmt.Errorf("failed to decode files for %s: %w", path, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%s: %w", path, models.ErrImageNotFound)
	}
	for _, f := range files {
		if err := b.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	return nil
}
