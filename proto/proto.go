/*
Package proto recognizes and extracts HTTP/1.x requests from a single TCP
payload.

Example of HTTP payload for future references, new line symbols escaped:

	POST /upload HTTP/1.1\r\n
	Host: example.com\r\n
	Content-Type: text/plain\r\n
	\r\n
	Hello world

A request split across several TCP segments is not reassembled, only the
first segment is inspected.
*/
package proto

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/buger/goreplay/byteutils"
	"github.com/vearne/httpcap/model"
)

// CRLF In HTTP newline defined by 2 bytes (for both windows and *nix support)
var CRLF = []byte("\r\n")

// EmptyLine acts as separator: end of Headers or Body (in some cases)
var EmptyLine = []byte("\r\n\r\n")

// HeaderDelim Separator for Header line. Header looks like: `HeaderName: value`
var HeaderDelim = []byte(": ")

const (
	crlf        = "\r\n"
	headerDelim = ": "
)

// Methods holds the request methods a payload may start with
var Methods = [...]string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
}

// MinRequestLen "GET "
const MinRequestLen = 4

// IsRequest reports whether payload starts with one of Methods followed by
// a space. The comparison is case-sensitive.
func IsRequest(payload []byte) bool {
	if len(payload) < MinRequestLen {
		return false
	}
	for _, m := range Methods {
		if len(payload) > len(m) && payload[len(m)] == ' ' &&
			byteutils.SliceToString(payload[:len(m)]) == m {
			return true
		}
	}
	return false
}

// ParseRequest extracts an HTTPRequest from payload. The request line must
// have at least three whitespace separated tokens, any method is accepted.
// Invalid UTF-8 is replaced by U+FFFD.
// Provenance fields (ID, Timestamp and addresses) are left zero.
func ParseRequest(payload []byte) (*model.HTTPRequest, bool) {
	head := payload
	if end := MIMEHeadersEndPos(payload); end >= 0 {
		head = payload[:end-len(EmptyLine)]
	}
	lines := strings.Split(lossyString(head), crlf)

	title := strings.Fields(lines[0])
	if len(title) < 3 {
		return nil, false
	}

	req := model.HTTPRequest{
		Method:  title[0],
		Path:    title[1],
		Version: title[2],
		Headers: make([]model.Header, 0, len(lines)),
	}

	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		pos := strings.Index(line, headerDelim)
		if pos < 0 {
			// most likely a folded or truncated header
			continue
		}
		h := model.Header{Name: line[:pos], Value: line[pos+len(headerDelim):]}
		switch {
		case strings.EqualFold(h.Name, "Host"):
			req.Host = h.Value
		case strings.EqualFold(h.Name, "Content-Type"):
			req.ContentType = h.Value
		}
		req.Headers = append(req.Headers, h)
	}

	req.Body = lossyString(Body(payload))
	return &req, true
}

// MIMEHeadersEndPos finds end of the Headers section, which should end with empty line.
func MIMEHeadersEndPos(payload []byte) int {
	pos := bytes.Index(payload, EmptyLine)
	if pos < 0 {
		return -1
	}
	return pos + 4
}

// Body returns request body
func Body(payload []byte) []byte {
	pos := MIMEHeadersEndPos(payload)
	if pos == -1 || len(payload) <= pos {
		return nil
	}
	return payload[pos:]
}

// Method returns HTTP method
func Method(payload []byte) []byte {
	end := bytes.IndexByte(payload, ' ')
	if end == -1 {
		return nil
	}

	return payload[:end]
}

// Path takes payload and returns request path: Split(firstLine, ' ')[1]
func Path(payload []byte) []byte {
	if !IsRequest(payload) {
		return nil
	}
	start := bytes.IndexByte(payload, ' ') + 1
	end := bytes.IndexAny(payload[start:], " \r\n")
	if end == -1 {
		return payload[start:]
	}

	return payload[start : start+end]
}
