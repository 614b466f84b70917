package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// startSOCKS5 runs a minimal unauthenticated SOCKS5 server that supports
// CONNECT to IPv4 addresses. It returns the listen address and a counter of
// tunnelled connections.
func startSOCKS5(t *testing.T) (string, *atomic.Int32) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
	if err != nil {
		t.Fatalf("failed to start mock proxy: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	var tunnels atomic.Int32
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveSOCKS5(conn, &tunnels)
		}
	}()

	return listener.Addr().String(), &tunnels
}

func serveSOCKS5(conn net.Conn, tunnels *atomic.Int32) {
	defer conn.Close()

	greeting := make([]byte, 2)
	if _, err := io.ReadFull(conn, greeting); err != nil {
		return
	}
	if _, err := io.ReadFull(conn, make([]byte, greeting[1])); err != nil {
		return
	}
	if _, err := conn.Write([]byte{0x05, 0x00}); err != nil {
		return
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil || header[3] != 0x01 {
		return
	}
	addr := make([]byte, 6)
	if _, err := io.ReadFull(conn, addr); err != nil {
		return
	}
	target := net.JoinHostPort(net.IP(addr[:4]).String(), strconv.Itoa(int(binary.BigEndian.Uint16(addr[4:]))))

	upstream, err := net.Dial("tcp", target) //nolint:noctx // test code
	if err != nil {
		_, _ = conn.Write([]byte{0x05, 0x05, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
		return
	}
	defer upstream.Close()

	if _, err := conn.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}); err != nil {
		return
	}
	tunnels.Add(1)

	go func() { _, _ = io.Copy(upstream, conn) }()
	_, _ = io.Copy(conn, upstream)
}

// TestNewClient tests the Client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("direct client has no proxy", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "" {
			t.Errorf("expected no proxy, got %q", client.ProxyAddress())
		}
		if client.Timeout() != DefaultTimeout {
			t.Errorf("expected default timeout, got %v", client.Timeout())
		}
	})

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(WithProxy("127.0.0.1:9050"), WithTimeout(10*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.ProxyAddress() != "127.0.0.1:9050" {
			t.Errorf("ProxyAddress() = %q", client.ProxyAddress())
		}
		if client.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", client.Timeout())
		}
	})

	t.Run("invalid proxy address returns error", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"127.0.0.1", ":9050", "127.0.0.1:", "127.0.0.1:9050:extra", "host:0", "host:70000", "host:abc"} {
			if _, err := NewClient(WithProxy(addr)); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("%q: expected ErrInvalidProxyAddress, got %v", addr, err)
			}
		}
	})
}

// TestHTTPClient tests requests made with the built client.
func TestHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("sets user agent and headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "boorucrawl/test" {
				t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
			}
			if r.Header.Get("X-Extra") != "1" {
				t.Errorf("missing custom header")
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client, err := NewClient(WithUserAgent("boorucrawl/test"), WithHeaders(map[string]string{"X-Extra": "1"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		resp, err := client.HTTPClient().Get(server.URL) //nolint:noctx // test code
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("unexpected status %d", resp.StatusCode)
		}
	})

	t.Run("routes through SOCKS5 proxy", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		proxyAddr, tunnels := startSOCKS5(t)
		client, err := NewClient(WithProxy(proxyAddr))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		resp, err := client.HTTPClient().Get(server.URL) //nolint:noctx // test code
		if err != nil {
			t.Fatalf("request through proxy failed: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if string(body) != "ok" {
			t.Errorf("unexpected body %q", body)
		}
		if tunnels.Load() == 0 {
			t.Error("expected the request to be tunnelled")
		}
	})

	t.Run("applies timeout", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(WithTimeout(5 * time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.HTTPClient().Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", client.HTTPClient().Timeout)
		}
	})
}

// TestCheckProxy tests the SOCKS5 proxy verification.
func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("direct client is OK", func(t *testing.T) {
		t.Parallel()

		client, _ := NewClient()
		if status := client.CheckProxy(context.Background()); status != ProxyStatusOK {
			t.Errorf("expected OK, got %v", status)
		}
	})

	t.Run("returns CannotConnect for closed port", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := listener.Addr().String()
		listener.Close()

		client, err := NewClient(WithProxy(addr))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if status := client.CheckProxy(context.Background()); status != ProxyStatusCannotConnect {
			t.Errorf("expected CannotConnect, got %v", status)
		}
	})

	t.Run("returns WrongType for non-SOCKS5 server", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
		if err != nil {
			t.Fatalf("failed to start mock server: %v", err)
		}
		defer listener.Close()

		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			_, _ = conn.Read(make([]byte, 3))
			_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\n\r\n"))
		}()

		client, err := NewClient(WithProxy(listener.Addr().String()))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if status := client.CheckProxy(context.Background()); status != ProxyStatusWrongType {
			t.Errorf("expected WrongType, got %v", status)
		}
	})

	t.Run("returns WrongType for SOCKS5 requiring auth", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
		if err != nil {
			t.Fatalf("failed to start mock server: %v", err)
		}
		defer listener.Close()

		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			_, _ = conn.Read(make([]byte, 3))
			_, _ = conn.Write([]byte{0x05, 0xFF})
		}()

		client, err := NewClient(WithProxy(listener.Addr().String()))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if status := client.CheckProxy(context.Background()); status != ProxyStatusWrongType {
			t.Errorf("expected WrongType, got %v", status)
		}
	})

	t.Run("returns OK for SOCKS5 proxy", func(t *testing.T) {
		t.Parallel()

		proxyAddr, _ := startSOCKS5(t)
		client, err := NewClient(WithProxy(proxyAddr))
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if status := client.CheckProxy(context.Background()); status != ProxyStatusOK {
			t.Errorf("expected OK, got %v", status)
		}
	})
}

// TestProxyStatus tests status strings and errors.
func TestProxyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  ProxyStatus
		str     string
		wantErr error
	}{
		{ProxyStatusOK, "OK", nil},
		{ProxyStatusWrongType, "wrong type (not SOCKS5)", ErrProxyNotSOCKS5},
		{ProxyStatusCannotConnect, "cannot connect", ErrProxyCannotConnect},
		{ProxyStatusTimeout, "timeout", ErrProxyTimeout},
	}

	for _, tt := range tests {
		if tt.status.String() != tt.str {
			t.Errorf("String() = %q, want %q", tt.status.String(), tt.str)
		}
		if !errors.Is(tt.status.Err(), tt.wantErr) {
			t.Errorf("Err() = %v, want %v", tt.status.Err(), tt.wantErr)
		}
	}
	if ProxyStatus(99).String() != "unknown" || ProxyStatus(99).Err() == nil {
		t.Error("unknown status should be reported")
	}
}
