package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/taskdep/internal/domain"
)

// RunResponse — run в представлении API. CLI не импортирует internal/api,
// поэтому формат продублирован.
type RunResponse struct {
	ID         string         `json:"id"`
	Graph      string         `json:"graph"`
	Root       string         `json:"root"`
	Status     string         `json:"status"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	Order      []string       `json:"order"`
	DryRun     bool           `json:"dry_run,omitempty"`
	StartedAt  string         `json:"started_at,omitempty"`
	FinishedAt string         `json:"finished_at,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

// QueuedRunResponse — ответ на асинхронный запуск.
type QueuedRunResponse struct {
	MessageID string `json:"message_id"`
}

// SubmitRunRequest — запуск графа через API.
type SubmitRunRequest struct {
	Spec   *domain.GraphSpec `json:"spec"`
	Root   string            `json:"root,omitempty"`
	Inputs map[string]any    `json:"inputs,omitempty"`
	DryRun bool              `json:"dry_run,omitempty"`
	Async  bool              `json:"async,omitempty"`
}

// ListRunsOpts — фильтр списка runs. Пустые поля не передаются.
type ListRunsOpts struct {
	Graph  string
	Status string
	Limit  int
}

func (o ListRunsOpts) query() url.Values {
	q := url.Values{}
	if o.Graph != "" {
		q.Set("graph", o.Graph)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	return q
}

// envelope — общая обёртка ответов API: data при успехе, error при ошибке.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, возвращённая API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client — HTTP-клиент taskdep API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт клиент. Таймаут большой: синхронный run
// держит соединение до конца выполнения графа.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// ListRuns возвращает runs по фильтру.
func (c *Client) ListRuns(ctx context.Context, opts ListRunsOpts) ([]RunResponse, error) {
	path := "/api/v1/runs"
	if q := opts.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var runs []RunResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(ctx context.Context, id string) (*RunResponse, error) {
	var run RunResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SubmitRun выполняет граф синхронно и возвращает итоговый run.
func (c *Client) SubmitRun(ctx context.Context, req SubmitRunRequest) (*RunResponse, error) {
	req.Async = false

	var run RunResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/runs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// EnqueueRun ставит граф в очередь и возвращает ID сообщения.
func (c *Client) EnqueueRun(ctx context.Context, req SubmitRunRequest) (string, error) {
	req.Async = true

	var queued QueuedRunResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/runs", req, &queued); err != nil {
		return "", err
	}
	return queued.MessageID, nil
}

// call отправляет запрос и распаковывает поле data в out.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
