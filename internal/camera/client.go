package camera

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Mode selects what the device captures while open.
type Mode string

const (
	ModePhoto Mode = "photo"
	ModeVideo Mode = "video"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePhoto, ModeVideo:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q", s)
	}
}

// DeviceStatus is the payload a device reports from its status endpoint and
// after open/close.
type DeviceStatus struct {
	Connection ConnectionStatus `json:"connection"`
	Mode       string           `json:"mode,omitempty"`
	Details    map[string]any   `json:"details,omitempty"`
}

// DeviceClient talks to one remote camera device.
type DeviceClient interface {
	Status(ctx context.Context) (*DeviceStatus, error)
	Open(ctx context.Context, mode Mode) (*DeviceStatus, error)
	Close(ctx context.Context) (*DeviceStatus, error)
	Capture(ctx context.Context) ([]byte, string, error)
}

// ClientFactory builds a DeviceClient for a camera's connection URL and
// decrypted auth headers. Indirection exists so tests can substitute a fake
// device.
type ClientFactory func(baseURL string, headers map[string]string) DeviceClient

// HTTPDeviceClient implements DeviceClient over plain HTTP. Calls use a
// bounded timeout and are never retried; transport failures surface as
// *NetworkError, device HTTP errors as *DeviceError, malformed payloads as
// *InvalidResponseError.
type HTTPDeviceClient struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

func NewHTTPDeviceClient(baseURL string, headers map[string]string, timeout time.Duration) *HTTPDeviceClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDeviceClient{
		baseURL: baseURL,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewClientFactory returns a ClientFactory producing HTTP clients with the
// given timeout.
func NewClientFactory(timeout time.Duration) ClientFactory {
	return func(baseURL string, headers map[string]string) DeviceClient {
		return NewHTTPDeviceClient(baseURL, headers, timeout)
	}
}

func (c *HTTPDeviceClient) Status(ctx context.Context) (*DeviceStatus, error) {
	return c.doStatus(ctx, http.MethodGet, "/camera/status", "status")
}

func (c *HTTPDeviceClient) Open(ctx context.Context, mode Mode) (*DeviceStatus, error) {
	return c.doStatus(ctx, http.MethodPost, "/camera/open?mode="+url.QueryEscape(string(mode)), "open")
}

func (c *HTTPDeviceClient) Close(ctx context.Context) (*DeviceStatus, error) {
	return c.doStatus(ctx, http.MethodPost, "/camera/close", "close")
}

// Capture requests one capture from the device and returns the raw bytes and
// content type.
func (c *HTTPDeviceClient) Capture(ctx context.Context) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/camera/capture", "capture")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &NetworkError{Op: "capture", Err: err}
	}
	if len(data) == 0 {
		return nil, "", &InvalidResponseError{Op: "capture", Err: fmt.Errorf("empty capture body")}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

func (c *HTTPDeviceClient) doStatus(ctx context.Context, method, path, op string) (*DeviceStatus, error) {
	resp, err := c.do(ctx, method, path, op)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status DeviceStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &InvalidResponseError{Op: op, Err: err}
	}
	if status.Connection == "" {
		return nil, &InvalidResponseError{Op: op, Err: fmt.Errorf("missing connection field")}
	}
	return &status, nil
}

func (c *HTTPDeviceClient) do(ctx context.Context, method, path, op string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts and connection refusals are indistinguishable here on
		// purpose; both are a network-error class.
		return nil, &NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrDeviceUnauthorized
	case resp.StatusCode >= 400:
		resp.Body.Close()
		return nil, &DeviceError{Op: op, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

var _ DeviceClient = (*HTTPDeviceClient)(nil)
