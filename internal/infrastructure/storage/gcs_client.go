package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"installerhub/internal/domain/entity"
	"installerhub/pkg/logger"
)

// ObjectWriter opens a writer for one object. It abstracts the bucket so
// archives can be written without a GCS client in tests.
type ObjectWriter interface {
	NewWriter(ctx context.Context, name, contentType string) (WriteCloser, error)
	URL(name string) string
}

type WriteCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

// ExportArchiver stores conversation exports as JSON objects.
type ExportArchiver struct {
	objects ObjectWriter
}

func NewExportArchiver(objects ObjectWriter) *ExportArchiver {
	return &ExportArchiver{objects: objects}
}

// ObjectName is exports/<conversationId>/<timestamp>.json.
func ObjectName(conversationID string, exportedAt time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", conversationID, exportedAt.UTC().Format("20060102T150405Z"))
}

// Archive writes export and returns the object URL.
func (a *ExportArchiver) Archive(ctx context.Context, export *entity.ConversationExport) (string, error) {
	name := ObjectName(export.Conversation.ID, export.ExportedAt)

	body, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %v", err)
	}

	w, err := a.objects.NewWriter(ctx, name, "application/json")
	if err != nil {
		return "", err
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write export %s: %v", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	logger.Info("ExportArchiver: Archived conversation %s to %s", export.Conversation.ID, name)
	return a.objects.URL(name), nil
}

// CloudStorageClient is the GCS-backed ObjectWriter.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName, credentialsPath string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *CloudStorageClient) NewWriter(ctx context.Context, name, contentType string) (WriteCloser, error) {
	wc := c.client.Bucket(c.bucketName).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "private, max-age=0"
	return wc, nil
}

func (c *CloudStorageClient) URL(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, name)
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
