package preflight

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds a single liveness dial.
const DefaultProbeTimeout = 5 * time.Second

// DialFunc opens a transport connection, matching net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Prober checks whether the daemon's listening socket accepts connections. It
// never speaks HTTP; a bare TCP connect is the whole check.
type Prober struct {
	Address string
	Timeout time.Duration
	Dial    DialFunc
}

// NewProber derives the dial address from the daemon base URL.
func NewProber(baseURL string, timeout time.Duration) (*Prober, error) {
	address, err := DialAddress(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{Address: address, Timeout: timeout}, nil
}

// Reachable dials the daemon once and closes the connection straight away.
func (p *Prober) Reachable(ctx context.Context) bool {
	return p.dial(ctx) == nil
}

func (p *Prober) dial(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := p.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	conn, err := dial(dialCtx, "tcp", p.Address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// CheckDaemon reports daemon reachability as a preflight result.
func CheckDaemon(ctx context.Context, baseURL string, timeout time.Duration) Result {
	const name = "Syncthing daemon"

	prober, err := NewProber(baseURL, timeout)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := prober.dial(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%v)", prober.Address, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s accepting connections", prober.Address)}
}

// DialAddress converts a daemon base URL into host:port. A URL without a
// scheme is treated as http; a missing port is inferred from the scheme.
func DialAddress(baseURL string) (string, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return "", fmt.Errorf("daemon url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse daemon url: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("daemon url %q has no host", baseURL)
	}
	port := parsed.Port()
	if port == "" {
		port = strconv.Itoa(defaultPort(parsed.Scheme))
	}
	return net.JoinHostPort(host, port), nil
}

func defaultPort(scheme string) int {
	switch strings.ToLower(scheme) {
	case "http", "":
		return 80
	case "https":
		return 443
	}
	if port, err := net.LookupPort("tcp", scheme); err == nil {
		return port
	}
	return 80
}
