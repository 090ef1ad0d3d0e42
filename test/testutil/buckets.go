package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/port"
	"github.com/minio/minio-go/v7"
)

type TestBucket struct {
	Name    string
	Cleanup func() error
}

// SetupTestBucket creates a uniquely named bucket through the service driver.
func SetupTestBucket(ctx context.Context, strg port.Storage, client *minio.Client) (*TestBucket, error) {
	name := fmt.Sprintf("property-media-%d", time.Now().UnixNano())
	if err := strg.InitBucket(ctx, name); err != nil {
		return nil, fmt.Errorf("could not create bucket %q: %w", name, err)
	}

	cleanup := func() error {
		// remove all objects and then the bucket itself
		for obj := range client.ListObjects(ctx, name, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				continue
			}
			_ = client.RemoveObject(ctx, name, obj.Key, minio.RemoveObjectOptions{})
		}
		if err := client.RemoveBucket(ctx, name); err != nil {
			return fmt.Errorf("could not remove bucket %q: %w", name, err)
		}
		return nil
	}

	return &TestBucket{Name: name, Cleanup: cleanup}, nil
}

// ObjectKeys lists every key stored in bucket.
func ObjectKeys(ctx context.Context, client *minio.Client, bucket string) ([]string, error) {
	var keys []string
	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}
