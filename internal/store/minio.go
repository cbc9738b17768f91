package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ayush/skillpath/backend/internal/shared"
)

const markdownType = "text/markdown; charset=utf-8"

// MinioArchive keeps one rendered Markdown export per saved learning path,
// under paths/<userID>/<pathID>.md.
type MinioArchive struct {
	client *minio.Client
	bucket string
}

// NewMinioArchive connects to endpoint and creates bucket when missing.
func NewMinioArchive(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioArchive{client: client, bucket: bucket}, nil
}

func exportKey(userID, pathID int64) string {
	return fmt.Sprintf("paths/%d/%d.md", userID, pathID)
}

// Put stores doc as the export of the given path, replacing any earlier one.
func (a *MinioArchive) Put(ctx context.Context, userID, pathID int64, doc []byte) error {
	key := exportKey(userID, pathID)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType: markdownType,
		UserMetadata: map[string]string{
			"user-id": strconv.FormatInt(userID, 10),
			"path-id": strconv.FormatInt(pathID, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("archive put %s: %w", key, err)
	}
	return nil
}

// Get returns the archived export. A missing object yields shared.ErrNotFound.
func (a *MinioArchive) Get(ctx context.Context, userID, pathID int64) ([]byte, error) {
	key := exportKey(userID, pathID)
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, archiveErr("get", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces NoSuchKey.
	if _, err := obj.Stat(); err != nil {
		return nil, archiveErr("stat", key, err)
	}
	doc, err := io.ReadAll(obj)
	if err != nil {
		return nil, archiveErr("read", key, err)
	}
	return doc, nil
}

// Delete removes the export. Removing a missing export is not an error.
func (a *MinioArchive) Delete(ctx context.Context, userID, pathID int64) error {
	key := exportKey(userID, pathID)
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return archiveErr("remove", key, err)
	}
	return nil
}

func archiveErr(op, key string, err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("archive %s %s: %w", op, key, shared.ErrNotFound)
	}
	return fmt.Errorf("archive %s %s: %w", op, key, err)
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	return errors.As(err, &resp) && resp.Code == "NoSuchKey"
}
