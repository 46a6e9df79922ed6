// Package request parses the minimal HTTP/1.1 request line and header
// grammar this server accepts, tokenizing with regular expressions over a
// single owned byte buffer.
package request

import (
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"
)

// Maximum combined size of the request line plus headers, per §6.
const maxHeaderSize = 2048

var (
	requestLineRe = regexp.MustCompile(`^([A-Za-z]{1,8}) /([A-Za-z0-9.\-]{1,63}) HTTP/(\d)\.(\d)$`)
	headerLineRe  = regexp.MustCompile(`^([A-Za-z0-9.\-]{1,128}): ([\x20-\x7E]{1,128})$`)
)

// ParseError carries the HTTP status this server should respond with when
// parsing fails, distinguishing the handful of non-400 statuses the grammar
// itself can produce (unsupported method, unsupported version).
type ParseError struct {
	Status int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Reason)
}

func badRequest(reason string) *ParseError {
	return &ParseError{Status: 400, Reason: reason}
}

// Request is the handler's view of a parsed request: method, URI, headers,
// any body bytes already buffered while parsing headers, and the raw
// connection to continue reading/writing on.
type Request struct {
	Method        string
	URI           string // without the leading slash
	Major, Minor  int
	Headers       map[string]string
	RequestID     string
	ContentLength int64
	HasBody       bool

	// Conn reads remaining body bytes through the same buffered reader used
	// for header parsing (so bytes already prefetched into it are not
	// dropped) and writes responses directly to the underlying connection.
	Conn io.ReadWriter
}

// connView composes a buffered reader (which may already hold prefetched
// body bytes) with the raw connection's Write, so callers get a single
// io.ReadWriter that never loses bytes the parser read ahead.
type connView struct {
	io.Reader
	io.Writer
}

// Parse reads and tokenizes a request line and headers from r (a buffered
// reader over the accepted connection). The method and version are checked
// (501/505) as soon as the request line is read; the 2048-byte limit on the
// request line plus headers is enforced while the headers are read.
func Parse(r *bufio.Reader, conn io.ReadWriter) (*Request, *ParseError) {
	var consumed int

	lineBytes, err := readCRLFLine(r, &consumed)
	if err != nil {
		return nil, badRequest("malformed request line")
	}

	m := requestLineRe.FindStringSubmatch(string(lineBytes))
	if m == nil {
		return nil, classifyRequestLine(string(lineBytes))
	}

	method := strings.ToUpper(m[1])
	uri := m[2]
	major, _ := strconv.Atoi(m[3])
	minor, _ := strconv.Atoi(m[4])

	if !isSupportedMethod(method) {
		return nil, &ParseError{Status: 501, Reason: "Not Implemented"}
	}
	if major != 1 || minor != 1 {
		return nil, &ParseError{Status: 505, Reason: "Version Not Supported"}
	}

	headers := make(map[string]string)
	for {
		lineBytes, err := readCRLFLine(r, &consumed)
		if err != nil {
			return nil, badRequest("malformed headers")
		}
		if len(lineBytes) == 0 {
			break
		}
		if consumed > maxHeaderSize {
			return nil, badRequest("request line and headers exceed 2048 bytes")
		}

		hm := headerLineRe.FindStringSubmatch(string(lineBytes))
		if hm == nil {
			return nil, badRequest("malformed header line")
		}
		headers[textproto.CanonicalMIMEHeaderKey(hm[1])] = hm[2]
	}

	if consumed > maxHeaderSize {
		return nil, badRequest("request line and headers exceed 2048 bytes")
	}

	requestID, ok := headers["Request-Id"]
	if !ok || requestID == "" {
		return nil, badRequest("missing Request-Id header")
	}

	req := &Request{
		Method:    method,
		URI:       uri,
		Major:     major,
		Minor:     minor,
		Headers:   headers,
		RequestID: requestID,
		Conn:      connView{Reader: r, Writer: conn},
	}

	if method == "PUT" {
		clStr, ok := headers["Content-Length"]
		if !ok {
			return nil, badRequest("missing Content-Length header")
		}
		cl, err := strconv.ParseInt(clStr, 10, 64)
		if err != nil || cl < 0 {
			return nil, badRequest("invalid Content-Length header")
		}
		req.ContentLength = cl
		req.HasBody = true
	}

	return req, nil
}

func isSupportedMethod(method string) bool {
	return method == "GET" || method == "PUT"
}

// classifyRequestLine distinguishes an unsupported-method or
// unsupported-version request line (501/505) from one that is simply
// malformed (400), by re-matching with a looser pattern.
func classifyRequestLine(line string) *ParseError {
	loose := regexp.MustCompile(`^([A-Za-z]{1,8}) /([A-Za-z0-9.\-]{1,63}) HTTP/(\d+)\.(\d+)$`)
	m := loose.FindStringSubmatch(line)
	if m == nil {
		return badRequest("malformed request line")
	}

	if !isSupportedMethod(strings.ToUpper(m[1])) {
		return &ParseError{Status: 501, Reason: "Not Implemented"}
	}

	return &ParseError{Status: 505, Reason: "Version Not Supported"}
}

// readCRLFLine reads one CRLF-terminated line (without the CRLF) from r,
// tracking the cumulative number of bytes consumed across the whole request
// for the 2048-byte limit.
func readCRLFLine(r *bufio.Reader, consumed *int) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	*consumed += len(line)

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, fmt.Errorf("request: line not terminated with CRLF")
	}

	return line[:len(line)-2], nil
}
