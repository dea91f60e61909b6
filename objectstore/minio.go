// Copyright © 2026 The PANGEA Authors.
//
//  This file is part of pangea.
//
//  pangea is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  pangea is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with pangea. If not, see <http://www.gnu.org/licenses/>.

package objectstore

// This file contains the S3 implementation of Store, using the minio client.

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jpillora/backoff"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const putAttempts = 3

// S3Config is what you need to supply to NewS3.
type S3Config struct {
	// Endpoint is the host[:port] of the S3-compatible service, without
	// scheme.
	Endpoint string

	AccessKey string
	SecretKey string

	// Bucket is the bucket all our keys live in. It must already exist.
	Bucket string

	// Secure is true to speak https to the endpoint.
	Secure bool
}

// S3 is the Store implementation backed by an S3-compatible object store.
type S3 struct {
	client *minio.Client
	bucket string
}

// NewS3 connects to the configured endpoint and confirms the bucket exists.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New("bucket does not exist: " + cfg.Bucket)
	}

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// Put implements Store. Transient failures are retried with backoff, since a
// multi-hour pipeline run shouldn't die to a blip during its last step.
func (s *S3) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	return s.withRetry(ctx, func() error {
		_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{})
		return err
	})
}

// PutFile implements Store.
func (s *S3) PutFile(ctx context.Context, key string, path string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{})
		return err
	})
}

// Get implements Store.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject is lazy, so confirm existence first to give a usable error
	if _, err := s.Stat(ctx, key); err != nil {
		return nil, err
	}
	return s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
}

// Stat implements Store.
func (s *S3) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ObjectInfo{}, ErrNotExists
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: info.Key, Size: info.Size, LastModified: info.LastModified}, nil
}

// List implements Store.
func (s *S3) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		infos = append(infos, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return infos, nil
}

// Delete implements Store.
func (s *S3) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// withRetry runs f up to putAttempts times, sleeping with jittered backoff
// between attempts, giving up early if the context is done.
func (s *S3) withRetry(ctx context.Context, f func() error) error {
	b := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    30 * time.Second,
		Factor: 3,
		Jitter: true,
	}

	var err error
	for attempt := 0; attempt < putAttempts; attempt++ {
		err = f()
		if err == nil {
			return nil
		}

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
