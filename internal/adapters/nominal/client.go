// Package nominal implements the simulation engine boundary over the Nominal
// JSON/HTTP API.
package nominal

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

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

const (
	DefaultURL     = "https://api.nominalsys.com"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 64 << 20
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: unexpected status code %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Connector opens simulation sessions against the API.
type Connector struct {
	httpClient *http.Client
}

type Option func(*Connector)

// WithHTTPClient replaces the default client, e.g. to add a transport.
func WithHTTPClient(c *http.Client) Option {
	return func(conn *Connector) {
		if c != nil {
			conn.httpClient = c
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(conn *Connector) {
		if d > 0 {
			conn.httpClient.Timeout = d
		}
	}
}

func NewConnector(opts ...Option) *Connector {
	c := &Connector{httpClient: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Connect authenticates with the API key and creates a fresh simulation.
func (c *Connector) Connect(ctx context.Context, creds domain.Credentials) (ports.Simulation, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is empty", domain.ErrConnectionFailed)
	}
	endpoint, err := creds.Endpoint()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectionFailed, err)
	}

	s := &Session{
		baseURL:    strings.TrimRight(endpoint, "/"),
		apiKey:     creds.APIKey,
		httpClient: c.httpClient,
	}
	var created idResponse
	if err := s.do(ctx, http.MethodPost, "/simulations", struct{}{}, &created); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectionFailed, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: server returned no simulation id", domain.ErrConnectionFailed)
	}
	s.id = created.ID
	return s, nil
}

// Session is one remote simulation.
type Session struct {
	id         string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func (s *Session) ID() string { return s.id }

type idResponse struct {
	ID string `json:"id"`
}

type systemRequest struct {
	Type   string        `json:"type"`
	Params domain.Params `json:"params"`
}

type componentRequest struct {
	Type   string        `json:"type"`
	Parent domain.Handle `json:"parent,omitempty"`
	Params domain.Params `json:"params"`
}

type valueBody struct {
	Value domain.Value `json:"value"`
}

type subscribeRequest struct {
	Interval float64 `json:"interval"`
}

type tickRequest struct {
	Step       float64 `json:"step"`
	Iterations int     `json:"iterations"`
}

func (s *Session) GetSystem(ctx context.Context, tag string, params domain.Params) (domain.Handle, error) {
	var out idResponse
	if err := s.do(ctx, http.MethodPost, s.path("systems"), systemRequest{Type: tag, Params: nonNil(params)}, &out); err != nil {
		return "", err
	}
	return domain.Handle(out.ID), nil
}

func (s *Session) AddComponent(ctx context.Context, tag string, parent domain.Handle, params domain.Params) (domain.Handle, error) {
	var out idResponse
	req := componentRequest{Type: tag, Parent: parent, Params: nonNil(params)}
	if err := s.do(ctx, http.MethodPost, s.path("objects"), req, &out); err != nil {
		return "", err
	}
	return domain.Handle(out.ID), nil
}

func (s *Session) GetValue(ctx context.Context, h domain.Handle, name string) (domain.Value, error) {
	var out valueBody
	if err := s.do(ctx, http.MethodGet, s.path("objects", string(h), "values", name), nil, &out); err != nil {
		return domain.Value{}, err
	}
	return out.Value, nil
}

func (s *Session) SetValue(ctx context.Context, h domain.Handle, name string, v domain.Value) error {
	return s.do(ctx, http.MethodPut, s.path("objects", string(h), "values", name), valueBody{Value: v}, nil)
}

func (s *Session) GetMessage(ctx context.Context, h domain.Handle, name string) (domain.Handle, error) {
	var out idResponse
	if err := s.do(ctx, http.MethodPost, s.path("objects", string(h), "messages", name), struct{}{}, &out); err != nil {
		return "", err
	}
	return domain.Handle(out.ID), nil
}

func (s *Session) Subscribe(ctx context.Context, msg domain.Handle, rate float64) error {
	return s.do(ctx, http.MethodPost, s.path("messages", string(msg), "subscribe"), subscribeRequest{Interval: rate}, nil)
}

func (s *Session) Tick(ctx context.Context, step float64, iterations int) error {
	return s.do(ctx, http.MethodPost, s.path("tick"), tickRequest{Step: step, Iterations: iterations}, nil)
}

// Fetch returns the recorded samples. Numbers inside data are kept as
// json.Number so they can be echoed exactly as the engine reported them.
func (s *Session) Fetch(ctx context.Context, msg domain.Handle, field string) ([]domain.Sample, error) {
	p := s.path("messages", string(msg), "data") + "?" + url.Values{"field": {field}}.Encode()
	var out []domain.Sample
	if err := s.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) path(segments ...string) string {
	var b strings.Builder
	b.WriteString("/simulations/")
	b.WriteString(url.PathEscape(s.id))
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

func (s *Session) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBytes+1)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(limited, 4096))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	raw, err := io.ReadAll(limited)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if len(raw) > maxResponseBytes {
		return fmt.Errorf("%s %s: response exceeds %d byte limit", method, path, maxResponseBytes)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

func nonNil(p domain.Params) domain.Params {
	if p == nil {
		return domain.Params{}
	}
	return p
}

var (
	_ ports.Connector  = (*Connector)(nil)
	_ ports.Simulation = (*Session)(nil)
)
