// Copyright (C) 2025 live-memory-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/live-memory-project/live-memory/config"
	"github.com/live-memory-project/live-memory/pkg/errors"
)

// MinioStore implements ObjectStore against any S3-compatible bucket.
//
// It holds two clients: object data operations (GET/PUT/DELETE) always
// sign V4, while HEAD and LIST go through a second client whose
// signature family is configurable. Certain vendors accept only one
// family for metadata requests. Both clients use path-style addressing.
type MinioStore struct {
	data   *minio.Client
	meta   *minio.Client
	bucket string

	maxRetries uint64
	backoff    func() backoff.BackOff
}

// NewMinioStore builds the facade from configuration.
func NewMinioStore(cfg config.StoreConfig) (*MinioStore, error) {
	endpoint, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	dataClient, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.ErrStorageUnavailable.WithMessage("data client").Wrap(err)
	}

	metaCreds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.MetadataSignature == "v2" {
		metaCreds = credentials.NewStaticV2(cfg.AccessKey, cfg.SecretKey, "")
	}
	metaClient, err := minio.New(endpoint, &minio.Options{
		Creds:        metaCreds,
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.ErrStorageUnavailable.WithMessage("metadata client").Wrap(err)
	}

	interval := cfg.RetryBackoff
	return &MinioStore{
		data:       dataClient,
		meta:       metaClient,
		bucket:     cfg.Bucket,
		maxRetries: uint64(cfg.MaxRetries),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = interval
			return b
		},
	}, nil
}

// splitEndpoint accepts "host:port" or a full URL and returns the
// host[:port] plus whether to use TLS.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", false, errors.ErrInvalidInput.WithMessage("store endpoint").Wrap(err)
		}
		return u.Host, u.Scheme == "https", nil
	}
	return endpoint, useSSL, nil
}

// retry runs op with bounded exponential backoff on transient errors.
func (s *MinioStore) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), s.maxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

// isTransient reports whether an error is worth retrying.
func isTransient(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode >= 500 {
		return true
	}
	switch resp.Code {
	case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
		return true
	}
	// Codes are only populated for S3-level errors; anything else is a
	// connection-level failure.
	return resp.Code == "" && resp.StatusCode == 0
}

// isAbsent reports whether an error means the key does not exist.
func isAbsent(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

// Get returns the object body, or found=false if the key is absent.
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var body []byte
	err := s.retry(ctx, func() error {
		obj, err := s.data.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		defer obj.Close()
		data, err := io.ReadAll(obj)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, errors.ErrStorageUnavailable.WithDetail("key", key).Wrap(err)
	}
	return body, true, nil
}

// Put writes an object, overwriting any existing one.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := s.retry(ctx, func() error {
		_, err := s.data.PutObject(ctx, s.bucket, key,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		return err
	})
	if err != nil {
		return errors.ErrStorageUnavailable.WithDetail("key", key).Wrap(err)
	}
	return nil
}

// Delete removes an object. Deleting an absent key is not an error.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	err := s.retry(ctx, func() error {
		return s.data.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil && !isAbsent(err) {
		return errors.ErrStorageUnavailable.WithDetail("key", key).Wrap(err)
	}
	return nil
}

// Head returns object metadata without the body.
func (s *MinioStore) Head(ctx context.Context, key string) (*ObjectInfo, bool, error) {
	var stat minio.ObjectInfo
	err := s.retry(ctx, func() error {
		info, err := s.meta.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
		if err != nil {
			return err
		}
		stat = info
		return nil
	})
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, errors.ErrStorageUnavailable.WithDetail("key", key).Wrap(err)
	}
	return &ObjectInfo{Key: stat.Key, Size: stat.Size, Modified: stat.LastModified}, true, nil
}

// List returns every object under the prefix, in key order. The
// underlying client paginates the bucket listing internally.
func (s *MinioStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	err := s.retry(ctx, func() error {
		infos = infos[:0]
		for obj := range s.meta.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				return obj.Err
			}
			infos = append(infos, ObjectInfo{Key: obj.Key, Size: obj.Size, Modified: obj.LastModified})
		}
		return nil
	})
	if err != nil {
		return nil, errors.ErrStorageUnavailable.WithDetail("prefix", prefix).Wrap(err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
