package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/kurin/blazer/b2"

	"apiworkbench/models"
)

// B2Archiver uploads expired history to a Backblaze B2 bucket as JSON Lines,
// one entry per line.
type B2Archiver struct {
	client     *b2.Client
	bucketName string
	bucket     *b2.Bucket
	logger     *slog.Logger
}

func NewB2Archiver(ctx context.Context, keyID, applicationKey, bucketName string, opts ...Option) (*B2Archiver, error) {
	client, err := b2.NewClient(ctx, keyID, applicationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create B2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &B2Archiver{
		client:     client,
		bucketName: bucketName,
		bucket:     bucket,
		logger:     newServiceConfig("b2_archiver", opts).logger,
	}, nil
}

// Archive streams entries to objectName. The object is only committed when
// every entry was written.
func (a *B2Archiver) Archive(ctx context.Context, objectName string, entries []models.History) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := a.bucket.Object(objectName).NewWriter(ctx)

	hasher := sha1.New()
	written, err := WriteHistoryJSONL(io.MultiWriter(writer, hasher), entries)
	if err != nil {
		// Cancelling before Close abandons the partial upload.
		cancel()
		writer.Close()
		return fmt.Errorf("failed to upload history to B2: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close B2 writer: %w", err)
	}

	a.logger.Info("history archived",
		"bucket", a.bucketName,
		"object", objectName,
		"entries", len(entries),
		"bytes", written,
		"sha1", hex.EncodeToString(hasher.Sum(nil)),
	)
	return nil
}

// WriteHistoryJSONL encodes entries to w, one JSON document per line, and
// returns the number of bytes written.
func WriteHistoryJSONL(w io.Writer, entries []models.History) (int64, error) {
	counter := &countingWriter{w: w}
	enc := json.NewEncoder(counter)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return counter.n, fmt.Errorf("failed to encode history entry %d: %w", entries[i].ID, err)
		}
	}
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
