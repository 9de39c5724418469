package syncthing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stwatch/internal/services"
)

// APIKeyHeader carries the static credential on every request.
const APIKeyHeader = "X-API-Key"

// ErrNotModified marks a 304 response from the event endpoint.
var ErrNotModified = errors.New("syncthing: not modified")

// StatusError reports an unexpected HTTP status from the daemon.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("syncthing %s returned status %d", e.Endpoint, e.Code)
}

// Unwrap lets callers match StatusError against services.ErrTransient.
func (e *StatusError) Unwrap() error { return services.ErrTransient }

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one Syncthing daemon.
type Client struct {
	base   *url.URL
	apiKey string
	http   HTTPDoer
}

// NewClient parses baseURL and returns a client. A nil doer uses a plain
// http.Client without a timeout; event long-polls rely on context
// cancellation instead.
func NewClient(baseURL, apiKey string, doer HTTPDoer) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "syncthing", "new client", "base url is empty", nil)
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "syncthing", "new client", "parse base url", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""
	if doer == nil {
		doer = &http.Client{}
	}
	return &Client{base: base, apiKey: strings.TrimSpace(apiKey), http: doer}, nil
}

// Folder is one entry of the daemon's folder configuration.
type Folder struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// SystemConfig is the subset of /rest/system/config the watcher reads.
type SystemConfig struct {
	Version int      `json:"version"`
	Folders []Folder `json:"folders"`
}

// Config fetches the daemon configuration.
func (c *Client) Config(ctx context.Context) (SystemConfig, error) {
	resp, err := c.get(ctx, "/rest/system/config", nil)
	if err != nil {
		return SystemConfig{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return SystemConfig{}, &StatusError{Endpoint: "config", Code: resp.StatusCode}
	}
	var cfg SystemConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return SystemConfig{}, classifyReadError("decode config", err)
	}
	return cfg, nil
}

// Folders fetches the configured folders.
func (c *Client) Folders(ctx context.Context) ([]Folder, error) {
	cfg, err := c.Config(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Folders, nil
}

// EventQuery selects events from /rest/events.
type EventQuery struct {
	Since  int64
	Events []string
	// Limit returns only the newest Limit matching events.
	Limit int
	// Timeout asks the daemon to end its long-poll after the given duration.
	Timeout time.Duration
}

func (q EventQuery) values() url.Values {
	values := url.Values{}
	values.Set("since", strconv.FormatInt(q.Since, 10))
	if len(q.Events) > 0 {
		values.Set("events", strings.Join(q.Events, ","))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Timeout > 0 {
		secs := int(q.Timeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		values.Set("timeout", strconv.Itoa(secs))
	}
	return values
}

// Events performs one event query. A 304 returns ErrNotModified, any other
// non-200 status a *StatusError.
func (c *Client) Events(ctx context.Context, q EventQuery) ([]Event, error) {
	resp, err := c.get(ctx, "/rest/events", q.values())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return nil, ErrNotModified
	default:
		drain(resp.Body)
		return nil, &StatusError{Endpoint: "events", Code: resp.StatusCode}
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, classifyReadError("decode events", err)
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	endpoint := c.base.JoinPath(path)
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "syncthing", "build request", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isConnectionDrop(err) {
			return nil, services.Wrap(services.ErrStreamInterrupted, "syncthing", "request", path, err)
		}
		return nil, services.Wrap(services.ErrTransient, "syncthing", "request", path, err)
	}
	return resp, nil
}

// classifyReadError tags body read failures. Once the daemon has started
// answering, any failure to read or decode the body means the stream broke.
func classifyReadError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrStreamInterrupted, "syncthing", op, "", err)
}

// isConnectionDrop reports whether a request failed because an established
// connection went away, as opposed to never being made.
func isConnectionDrop(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return false
}

// IsTransportError reports whether err is a stream interruption that should
// trigger a liveness re-probe.
func IsTransportError(err error) bool {
	return errors.Is(err, services.ErrStreamInterrupted)
}

// IsNotModified reports whether err marks a 304 response.
func IsNotModified(err error) bool {
	return errors.Is(err, ErrNotModified)
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
}
