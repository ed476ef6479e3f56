// Package gcs implements the pipeline's object-store operations on Google
// Cloud Storage: list-by-prefix, read, and delete.
package gcs

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Client wraps a Cloud Storage client with the narrow surface the OCR
// pipeline needs.
type Client struct {
	client *storage.Client
}

// NewClient creates a storage client with credentials from the environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env, falling back to application default credentials.
func NewClient(ctx context.Context) (*Client, error) {
	var opts []option.ClientOption

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{client: client}, nil
}

// NewClientWithStorage creates a Client with an explicit storage client (for testing).
func NewClientWithStorage(client *storage.Client) *Client {
	return &Client{client: client}
}

// List returns the names of all objects in bucket whose name starts with
// prefix, in the service's listing order.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := c.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}

	return names, nil
}

// Read returns the full content of one object.
func (c *Client) Read(ctx context.Context, bucket, name string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Delete removes one object.
func (c *Client) Delete(ctx context.Context, bucket, name string) error {
	return c.client.Bucket(bucket).Object(name).Delete(ctx)
}

// Close closes the underlying storage client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
