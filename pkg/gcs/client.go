// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gcs archives benchmark artifacts to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AleutianAI/schemabench/pkg/logging"
)

// Client uploads local result files into a bucket. It satisfies the
// benchmark sink's Uploader interface.
type Client struct {
	storageClient *storage.Client
	BucketName    string
	logger        *logging.Logger
}

// NewClient builds a client for bucketName. With an empty saKeyPath the
// client authenticates through Application Default Credentials; otherwise
// the service account key at that path is used.
func NewClient(ctx context.Context, bucketName, saKeyPath string, logger *logging.Logger) (*Client, error) {
	var opts []option.ClientOption
	if saKeyPath != "" {
		if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
		}
		opts = append(opts, option.WithCredentialsFile(saKeyPath))
	}

	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &Client{
		storageClient: storageClient,
		BucketName:    bucketName,
		logger:        logger,
	}, nil
}

// Upload copies the local file to gs://<bucket>/<objectPath>.
func (c *Client) Upload(ctx context.Context, localPath, objectPath string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open the local file: %s: %w", localPath, err)
	}
	defer localFile.Close()

	obj := c.storageClient.Bucket(c.BucketName).Object(objectPath)
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType(localPath)
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, localFile); err != nil {
		return fmt.Errorf("failed to copy local file %s to GCS object %s: %w", localPath, objectPath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", objectPath, err)
	}

	c.logger.Info("uploaded artifact",
		"local", localPath, "object", fmt.Sprintf("gs://%s/%s", c.BucketName, objectPath))
	return nil
}

// UploadDir uploads every regular file under localDir, flattened beneath
// objectPrefix.
func (c *Client) UploadDir(ctx context.Context, localDir, objectPrefix string) error {
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			objectPath := filepath.ToSlash(filepath.Join(objectPrefix, info.Name()))
			return c.Upload(ctx, path, objectPath)
		}
		return nil
	})
}

// Close releases the storage client.
func (c *Client) Close() error {
	return c.storageClient.Close()
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
