// Package warehouse builds an authenticated BigQuery client from a service
// account key file. It is a standalone collaborator: the pipelines never
// call it.
package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/joho/godotenv"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// EnvKeyPath names the variable holding the key file path.
const EnvKeyPath = "BIGQUERY_CREDENTIALS_PATH"

// newBigQuery is swapped in tests.
var newBigQuery = func(ctx context.Context, project string, opts ...option.ClientOption) (*bigquery.Client, error) {
	return bigquery.NewClient(ctx, project, opts...)
}

// Client is a BigQuery client bound to the key's project.
type Client struct {
	BQ      *bigquery.Client
	Project string
}

// KeyPathFromEnv loads the given dotenv files (".env" when none) without
// overriding variables already set, then returns EnvKeyPath. Missing dotenv
// files are ignored.
func KeyPathFromEnv(files ...string) string {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	return os.Getenv(EnvKeyPath)
}

type serviceAccountKey struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
}

// projectFromKey reads the project id out of a service account key file.
func projectFromKey(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("warehouse: credentials path not set (%s): %w", EnvKeyPath, os.ErrNotExist)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("warehouse: credentials file %s: %w", path, err)
	}
	var k serviceAccountKey
	if err := json.Unmarshal(b, &k); err != nil {
		return "", fmt.Errorf("warehouse: decode %s: %w", path, err)
	}
	if k.ProjectID == "" {
		return "", fmt.Errorf("warehouse: %s has no project_id", path)
	}
	return k.ProjectID, nil
}

// NewClient authenticates with the key at keyPath. An empty or missing path
// yields an error wrapping os.ErrNotExist.
func NewClient(ctx context.Context, keyPath string) (*Client, error) {
	project, err := projectFromKey(keyPath)
	if err != nil {
		return nil, err
	}
	bq, err := newBigQuery(ctx, project, option.WithCredentialsFile(keyPath))
	if err != nil {
		return nil, fmt.Errorf("warehouse: bigquery client: %w", err)
	}
	return &Client{BQ: bq, Project: project}, nil
}

// Ping runs SELECT 1 and checks the single row comes back.
func (c *Client) Ping(ctx context.Context) error {
	it, err := c.BQ.Query("SELECT 1 AS ok").Read(ctx)
	if err != nil {
		return fmt.Errorf("warehouse: ping: %w", err)
	}
	var row []bigquery.Value
	err = it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return errors.New("warehouse: ping returned no rows")
	}
	if err != nil {
		return fmt.Errorf("warehouse: ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.BQ == nil {
		return nil
	}
	return c.BQ.Close()
}
