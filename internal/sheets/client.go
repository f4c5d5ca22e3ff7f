package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds one bridge call.
const DefaultTimeout = 15 * time.Second

// maxResponseBytes caps the body read from the bridge.
const maxResponseBytes = 4 << 20

// Bridge command names.
const (
	cmdGetBotUser        = "getBotUser"
	cmdCreateBotUser     = "createBotUser"
	cmdUpdateBotUserStep = "updateBotUserStep"
	cmdUpdateAccess      = "updateBotUserAccess"
	cmdGetMinistries     = "getMinistries"
	cmdGetLeaders        = "getLeaders"
	cmdCreateEnvelope    = "createEnvelope"
	cmdCreateEnrollment  = "createEnrollment"
	cmdCreatePayment     = "createPayment"
	cmdCreateRequest     = "createRequest"
	cmdCreateNewPerson   = "createNewPerson"
)

// Client calls the spreadsheet bridge.
type Client struct {
	url    string
	key    string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a bridge client for url, authenticating with key.
func New(url, key string, opts ...Option) *Client {
	c := &Client{
		url:  url,
		key:  key,
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// BridgeError is a failure reported by, or talking to, the bridge.
type BridgeError struct {
	Command    string
	StatusCode int
	Message    string
}

func (e *BridgeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bridge %s: http %d: %s", e.Command, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bridge %s: %s", e.Command, e.Message)
}

type request struct {
	Key     string `json:"key"`
	Command string `json:"command"`
	Payload any    `json:"payload"`
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call posts one command and decodes data into out. A null or missing data
// field leaves out untouched and reports found == false.
func (c *Client) call(ctx context.Context, command string, payload any, out any) (found bool, err error) {
	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(request{Key: c.key, Command: command, Payload: payload})
	if err != nil {
		return false, fmt.Errorf("bridge %s: encode: %w", command, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("bridge %s: %w", command, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return false, &BridgeError{Command: command, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, &BridgeError{Command: command, StatusCode: resp.StatusCode, Message: err.Error()}
	}
	c.logger.Debug("bridge call", "command", command, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &BridgeError{Command: command, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return false, &BridgeError{Command: command, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if r.Status != "success" {
		msg := r.Message
		if msg == "" {
			msg = fmt.Sprintf("status %q", r.Status)
		}
		return false, &BridgeError{Command: command, Message: msg}
	}

	if len(r.Data) == 0 || string(r.Data) == "null" {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(r.Data, out); err != nil {
			return false, &BridgeError{Command: command, Message: fmt.Sprintf("decode data: %v", err)}
		}
	}
	return true, nil
}
