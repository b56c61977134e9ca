package photos

import (
	"context"
	"errors"
	"fmt"

	"idcards/internal/cloudinary"
)

// StoredObject is a durable, fetchable copy of an uploaded image.
type StoredObject struct {
	URL string
	Key string
}

// MediaStore holds image bytes outside the database.
type MediaStore interface {
	Put(ctx context.Context, key string, data []byte) (StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// CloudinaryStore adapts the Cloudinary client to MediaStore.
type CloudinaryStore struct {
	client *cloudinary.Client
}

// NewCloudinaryStore wraps a configured client.
func NewCloudinaryStore(client *cloudinary.Client) *CloudinaryStore {
	return &CloudinaryStore{client: client}
}

// Put uploads data and returns the secure URL with the full public id as key.
func (s *CloudinaryStore) Put(ctx context.Context, key string, data []byte) (StoredObject, error) {
	res, err := s.client.Upload(ctx, key, data)
	if err != nil {
		return StoredObject{}, err
	}
	return StoredObject{URL: res.SecureURL, Key: res.PublicID}, nil
}

// Delete removes the object. A missing object counts as deleted.
func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	err := s.client.Destroy(ctx, key)
	if errors.Is(err, cloudinary.ErrNotFound) {
		return nil
	}
	return err
}

// unconfiguredStore rejects every write so uploads fail cleanly when no media
// store credentials are present.
type unconfiguredStore struct{}

// Unconfigured returns a MediaStore that always fails.
func Unconfigured() MediaStore { return unconfiguredStore{} }

func (unconfiguredStore) Put(context.Context, string, []byte) (StoredObject, error) {
	return StoredObject{}, fmt.Errorf("image storage not configured")
}

func (unconfiguredStore) Delete(context.Context, string) error {
	return fmt.Errorf("image storage not configured")
}
