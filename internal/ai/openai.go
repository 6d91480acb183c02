package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// PurposeUserData is the usage tag sent when registering a document with
// the file-storage endpoint.
const PurposeUserData = "user_data"

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ResponseRequest is one inference call: a stored file plus the extraction
// prompt, constrained by a structured-output format.
type ResponseRequest struct {
	Model          string
	FileID         string
	Prompt         string
	ResponseFormat map[string]any
}

// OpenAIClient talks to an OpenAI-style Files + Responses API over plain
// net/http.
type OpenAIClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewOpenAIClient(cfg Config) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewOpenAIClientWithHTTPClient is intended for tests; a custom
// RoundTripper avoids network access.
func NewOpenAIClientWithHTTPClient(cfg Config, httpClient *http.Client) *OpenAIClient {
	c := NewOpenAIClient(cfg)
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

// UploadFile registers one document with the file-storage endpoint and
// returns the opaque file id issued by the service.
func (c *OpenAIClient) UploadFile(ctx context.Context, filename string, content io.Reader, purpose string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", purpose); err != nil {
		return "", fmt.Errorf("write purpose field failed: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create file part failed: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("copy file content failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("build file upload request failed: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	raw, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse file upload response failed: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("file upload response missing id")
	}
	return parsed.ID, nil
}

// CreateResponse issues one inference call. The body is returned decoded
// but untyped; the service's response shape varies across API versions,
// so discriminating it is left to the caller.
func (c *OpenAIClient) CreateResponse(ctx context.Context, reqBody ResponseRequest) (map[string]any, error) {
	payload := map[string]any{
		"model": reqBody.Model,
		"input": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "input_file", "file_id": reqBody.FileID},
					{"type": "input_text", "text": reqBody.Prompt},
				},
			},
		},
		"text": map[string]any{
			"format": reqBody.ResponseFormat,
		},
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal inference request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/responses", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build inference request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse inference response failed: %w", err)
	}
	return parsed, nil
}

func (c *OpenAIClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
