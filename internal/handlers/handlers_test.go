package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cubbit/httpfs/internal/request"
)

type loopbackConn struct {
	*bytes.Buffer
}

func (loopbackConn) Write(p []byte) (int, error) { return len(p), nil }

func TestGet_Missing(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	res := Get(dir, "missing", &out)
	require.Equal(t, 404, res.Status)
	require.False(t, res.Sent)
}

func TestGet_Success(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("hello"), 0644))

	var out bytes.Buffer
	res := Get(dir, "a", &out)
	require.Equal(t, 200, res.Status)
	require.True(t, res.Sent)
	require.Contains(t, out.String(), "Content-Length: 5")
	require.True(t, strings.HasSuffix(out.String(), "hello"))
}

func TestGet_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	var out bytes.Buffer
	res := Get(dir, "sub", &out)
	require.Equal(t, 403, res.Status)
}

func TestPut_CreatesNewFile(t *testing.T) {
	dir := t.TempDir()
	body := bytes.NewBufferString("hello")
	req := &request.Request{
		URI:           "a",
		ContentLength: 5,
		Conn:          loopbackConn{body},
	}

	res := Put(dir, req, nil)
	require.Equal(t, 201, res.Status)

	data, err := os.ReadFile(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestPut_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("old-content"), 0644))

	body := bytes.NewBufferString("hello")
	req := &request.Request{
		URI:           "a",
		ContentLength: 5,
		Conn:          loopbackConn{body},
	}

	res := Put(dir, req, nil)
	require.Equal(t, 200, res.Status)

	data, err := os.ReadFile(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestPut_UsesAlreadyBufferedBytes(t *testing.T) {
	dir := t.TempDir()
	body := bytes.NewBufferString("lo")
	req := &request.Request{
		URI:           "a",
		ContentLength: 5,
		Conn:          loopbackConn{body},
	}

	res := Put(dir, req, []byte("hel"))
	require.Equal(t, 201, res.Status)

	data, err := os.ReadFile(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestWriteCanned_404(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteCanned(&out, 404))
	require.True(t, strings.HasPrefix(out.String(), "HTTP/1.1 404 Not Found"))
	require.True(t, strings.HasSuffix(out.String(), "Not Found\n"))
}
