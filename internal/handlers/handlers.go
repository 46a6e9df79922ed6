// Package handlers implements GET/PUT request semantics: filesystem I/O,
// errno-to-status mapping, and the canned-response fallback for requests a
// handler did not stream its own reply for.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/cubbit/httpfs/internal/request"
)

// Result is what a handler reports back to the dispatcher: the status to
// audit and (for canned statuses) write, and whether the handler already
// streamed its own reply directly to the connection.
type Result struct {
	Status int
	Sent   bool
}

// Get serves a GET: opens uri read-only under webroot, rejects directories
// with 403, and otherwise streams the file with a 200 and accurate
// Content-Length. The handler writes its own status line on success, so the
// dispatcher must not emit a canned response in that case.
func Get(webroot, uri string, conn io.Writer) Result {
	fullPath := filepath.Join(webroot, uri)

	f, err := os.Open(fullPath)
	if err != nil {
		return Result{Status: statusForOpenError(err), Sent: false}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return Result{Status: 500, Sent: false}
	}
	if info.IsDir() {
		return Result{Status: 403, Sent: false}
	}

	if _, err := fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n", info.Size()); err != nil {
		return Result{Status: 200, Sent: true}
	}
	if _, err := io.Copy(conn, f); err != nil {
		return Result{Status: 200, Sent: true}
	}

	return Result{Status: 200, Sent: true}
}

// Put serves a PUT: opens uri write-only with truncation (200) or creates it
// with mode 0666 on ENOENT (201), then writes the alreadyBuffered bytes
// followed by the remaining Content-Length bytes read from the connection.
func Put(webroot string, req *request.Request, alreadyBuffered []byte) Result {
	fullPath := filepath.Join(webroot, req.URI)

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_TRUNC, 0666)
	status := 200
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Result{Status: statusForOpenError(err), Sent: false}
		}
		f, err = os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE, 0666)
		if err != nil {
			return Result{Status: statusForOpenError(err), Sent: false}
		}
		status = 201
	}
	defer func() { _ = f.Close() }()

	if len(alreadyBuffered) > 0 {
		if _, err := f.Write(alreadyBuffered); err != nil {
			return Result{Status: 500, Sent: false}
		}
	}

	remaining := req.ContentLength - int64(len(alreadyBuffered))
	if remaining > 0 {
		if _, err := io.CopyN(f, req.Conn, remaining); err != nil {
			return Result{Status: 500, Sent: false}
		}
	}

	return Result{Status: status, Sent: false}
}

// statusForOpenError classifies a filesystem error per §4.5/§7:
// EACCES|ENAMETOOLONG|EPERM|EROFS|EISDIR -> 403, ENOENT -> 404, else 500.
func statusForOpenError(err error) int {
	if errors.Is(err, os.ErrNotExist) {
		return 404
	}
	if errors.Is(err, os.ErrPermission) {
		return 403
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENAMETOOLONG, syscall.EROFS, syscall.EISDIR, syscall.EPERM, syscall.EACCES:
			return 403
		case syscall.ENOENT:
			return 404
		}
	}

	return 500
}

// CannedBody returns the fixed reason phrase and body text for a status the
// dispatcher emits itself.
func CannedBody(status int) (reason, body string) {
	switch status {
	case 200:
		return "OK", "OK\n"
	case 201:
		return "Created", "Created\n"
	case 400:
		return "Bad Request", "Bad Request\n"
	case 403:
		return "Forbidden", "Forbidden\n"
	case 404:
		return "Not Found", "Not Found\n"
	case 500:
		return "Internal Server Error", "Internal Server Error\n"
	case 501:
		return "Not Implemented", "Not Implemented\n"
	case 505:
		return "Version Not Supported", "Version Not Supported\n"
	default:
		return "Internal Server Error", "Internal Server Error\n"
	}
}

// WriteCanned writes a fixed status-line and body with correct
// Content-Length, for any status the dispatcher must produce itself.
func WriteCanned(conn io.Writer, status int) error {
	reason, body := CannedBody(status)
	_, err := fmt.Fprintf(conn, "HTTP/1.1 %d %s\r\nContent-Length: %d\r\n\r\n%s", status, reason, len(body), body)
	return err
}
