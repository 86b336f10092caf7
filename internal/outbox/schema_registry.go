package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSubjectNotFound is returned when the registry has no matching schema under a subject.
var ErrSubjectNotFound = errors.New("schema subject not found")

const registryContentType = "application/vnd.schemaregistry.v1+json"

// SchemaRegistryClient speaks the two Confluent Schema Registry calls the
// dispatcher needs: look up a JSON schema under a subject, and register it.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchemaRegistryClient constructs a client with a ten second timeout.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema returns the ID of schema under subject, registering it when
// the registry does not know it yet.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	subjectURL := c.baseURL + "/subjects/" + url.PathEscape(subject)

	id, err := c.post(ctx, subjectURL, schema)
	if errors.Is(err, ErrSubjectNotFound) {
		return c.post(ctx, subjectURL+"/versions", schema)
	}
	return id, err
}

type schemaRequest struct {
	SchemaType string `json:"schemaType"`
	Schema     string `json:"schema"`
}

func (c *SchemaRegistryClient) post(ctx context.Context, endpoint string, schema string) (int, error) {
	body, err := json.Marshal(schemaRequest{SchemaType: "JSON", Schema: schema})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", registryContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("schema registry: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, ErrSubjectNotFound
	case resp.StatusCode >= http.StatusMultipleChoices:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("schema registry error (status %d): %s", resp.StatusCode, detail)
	}

	var registered struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		return 0, fmt.Errorf("decode schema registry response: %w", err)
	}
	return registered.ID, nil
}
