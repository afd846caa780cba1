package sdserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// PortKiller force-terminates whatever process listens on a TCP port.
type PortKiller interface {
	KillPort(ctx context.Context, port int) error
}

// FuserKiller runs `fuser -k PORT/tcp`.
type FuserKiller struct{}

func (FuserKiller) KillPort(ctx context.Context, port int) error {
	out, err := exec.CommandContext(ctx, "fuser", "-k", fmt.Sprintf("%d/tcp", port)).CombinedOutput()
	if err != nil {
		var ee *exec.ExitError
		// fuser exits 1 when nothing was listening.
		if errors.As(err, &ee) && ee.ExitCode() == 1 {
			return nil
		}
		return fmt.Errorf("fuser -k %d/tcp: %w: %s", port, err, string(out))
	}
	return nil
}

// endpoint splits a base URL into a dialable host and a port.
func endpoint(baseURL string) (host string, port int, err error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", 0, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	host = u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("base url %q has no host", baseURL)
	}
	if host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	p := u.Port()
	switch {
	case p != "":
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return "", 0, fmt.Errorf("invalid port in %q", baseURL)
		}
	case u.Scheme == "https":
		port = 443
	default:
		port = 80
	}
	return host, port, nil
}

// isPortBusy reports whether something accepts TCP connections on host:port.
func isPortBusy(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// isLoopback reports whether host names this machine.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// PortOpen reports whether the server port at baseURL accepts connections.
func PortOpen(baseURL string) bool {
	host, port, err := endpoint(baseURL)
	if err != nil {
		return false
	}
	return isPortBusy(host, port)
}
