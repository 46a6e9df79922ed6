package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cubbit/httpfs/pkg/config"
)

func newTestServer(t *testing.T, webroot string) (*Server, int) {
	t.Helper()

	cfg := config.GetDefaultConfig()
	cfg.Server.Webroot = webroot
	cfg.Server.Port = freePort(t)
	cfg.Audit.Output = os.DevNull
	require.NoError(t, config.Validate(cfg))

	srv, err := New(cfg)
	require.NoError(t, err)
	return srv, cfg.Server.Port
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func startServer(t *testing.T, srv *Server) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond) // let the listener bind
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	}
}

func sendRequest(t *testing.T, port int, raw string) string {
	t.Helper()

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	out, err := io.ReadAll(bufio.NewReader(conn))
	if err != nil && err != io.EOF {
		t.Fatalf("read response: %v", err)
	}
	return string(out)
}

func TestEndToEnd_GetMissing(t *testing.T) {
	dir := t.TempDir()
	srv, port := newTestServer(t, dir)
	defer startServer(t, srv)()

	resp := sendRequest(t, port, "GET /missing HTTP/1.1\r\nRequest-Id: 1\r\n\r\n")
	require.True(t, strings.HasPrefix(resp, "HTTP/1.1 404 Not Found"), "unexpected response: %q", resp)
	require.True(t, strings.HasSuffix(resp, "Not Found\n"))
}

func TestEndToEnd_PutCreateThenOverwriteThenGet(t *testing.T) {
	dir := t.TempDir()
	srv, port := newTestServer(t, dir)
	defer startServer(t, srv)()

	resp := sendRequest(t, port, "PUT /a HTTP/1.1\r\nRequest-Id: 2\r\nContent-Length: 5\r\n\r\nhello")
	require.Contains(t, resp, "HTTP/1.1 201 Created")

	resp = sendRequest(t, port, "PUT /a HTTP/1.1\r\nRequest-Id: 2\r\nContent-Length: 5\r\n\r\nhello")
	require.Contains(t, resp, "HTTP/1.1 200 OK")

	resp = sendRequest(t, port, "GET /a HTTP/1.1\r\nRequest-Id: 3\r\n\r\n")
	require.Contains(t, resp, "HTTP/1.1 200 OK")
	require.Contains(t, resp, "Content-Length: 5")
	require.Contains(t, resp, "hello")
}

func TestEndToEnd_UnsupportedMethod(t *testing.T) {
	dir := t.TempDir()
	srv, port := newTestServer(t, dir)
	defer startServer(t, srv)()

	resp := sendRequest(t, port, "POST /x HTTP/1.1\r\nRequest-Id: 4\r\n\r\n")
	require.Contains(t, resp, "HTTP/1.1 501 Not Implemented")
}

func TestEndToEnd_UnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	srv, port := newTestServer(t, dir)
	defer startServer(t, srv)()

	resp := sendRequest(t, port, "GET /a HTTP/0.9\r\nRequest-Id: 5\r\n\r\n")
	require.Contains(t, resp, "HTTP/1.1 505 Version Not Supported")
}
