package steps

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

// StepTypeHTTP — HTTP запрос.
const StepTypeHTTP = "http"

const (
	// defaultHTTPTimeout применяется, если у задачи нет timeout_sec.
	defaultHTTPTimeout = 30 * time.Second

	// maxErrorBody — сколько тела ответа сохраняется в HTTPError.
	maxErrorBody = 4 << 10
)

// clientMode — сочетание опций, влияющих на http.Client.
type clientMode struct {
	noRedirects bool
	insecure    bool
}

// HTTPStep выполняет HTTP запрос. Задача успешна, если статус входит
// в expect_status, а без него при любом 2xx.
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/deploy",
//	    "headers": {"Authorization": "Bearer {{ .Env.DEPLOY_TOKEN }}"},
//	    "body": {"env": "{{ .Inputs.env }}"},
//	    "expect_status": [200, 202],
//	    "follow_redirects": true,
//	    "validate_ssl": true
//	}
type HTTPStep struct {
	clients map[clientMode]*http.Client
}

// NewHTTPStep создаёт HTTPStep. Клиенты для всех сочетаний
// follow_redirects и validate_ssl создаются заранее и переиспользуют соединения.
func NewHTTPStep() *HTTPStep {
	s := &HTTPStep{clients: make(map[clientMode]*http.Client, 4)}

	for _, noRedirects := range []bool{false, true} {
		for _, insecure := range []bool{false, true} {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			if insecure {
				transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
			}

			client := &http.Client{Transport: transport}
			if noRedirects {
				client.CheckRedirect = func(*http.Request, []*http.Request) error {
					return http.ErrUseLastResponse
				}
			}
			s.clients[clientMode{noRedirects: noRedirects, insecure: insecure}] = client
		}
	}
	return s
}

// Type возвращает StepTypeHTTP.
func (*HTTPStep) Type() string { return StepTypeHTTP }

// Execute отправляет запрос и проверяет статус ответа.
func (s *HTTPStep) Execute(ctx context.Context, req *Request) error {
	call, err := parseHTTPCall(req.Config)
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHTTPTimeout)
		defer cancel()
	}

	httpReq, err := call.request(ctx)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	start := time.Now()
	resp, err := s.clients[call.mode].Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrStepCancelled, call.method, call.url, ctx.Err())
		}
		return fmt.Errorf("%s %s: %w", call.method, call.url, err)
	}
	defer resp.Body.Close()

	req.Logger.Debug("http request completed",
		"method", call.method,
		"url", call.url,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if !call.accepts(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// httpCall — запрос, собранный из конфигурации задачи.
type httpCall struct {
	method  string
	url     string
	headers map[string]string
	body    any
	expect  []int
	mode    clientMode
}

func parseHTTPCall(config map[string]any) (*httpCall, error) {
	call := &httpCall{
		method:  strings.ToUpper(GetConfigString(config, "method")),
		url:     GetConfigString(config, "url"),
		headers: GetConfigMapString(config, "headers"),
		body:    config["body"],
		expect:  GetConfigInts(config, "expect_status"),
		mode: clientMode{
			noRedirects: !GetConfigBool(config, "follow_redirects", true),
			insecure:    !GetConfigBool(config, "validate_ssl", true),
		},
	}

	if call.url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, StepTypeHTTP)
	}
	if call.method == "" {
		call.method = http.MethodGet
	}
	return call, nil
}

func (c *httpCall) accepts(status int) bool {
	if len(c.expect) == 0 {
		return status >= 200 && status < 300
	}
	return slices.Contains(c.expect, status)
}

// request создаёт *http.Request. Тело не-строкового типа кодируется в JSON,
// Content-Type по умолчанию application/json.
func (c *httpCall) request(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if c.body != nil {
		data, err := encodeBody(c.body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// HTTPError — ответ с неожиданным статусом. Оборачивает ErrUnexpectedStatus.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

func (e *HTTPError) Unwrap() error {
	return ErrUnexpectedStatus
}
