package mcpclient

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
)

// isEventStream reports whether the content type is text/event-stream.
func isEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/event-stream")
}

// looksLikeEventStream sniffs bodies from servers that stream SSE without
// declaring the content type.
func looksLikeEventStream(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("event:")) || bytes.HasPrefix(trimmed, []byte("data:"))
}

// parseSSE extracts the first data payload from a Server-Sent Events body.
func parseSSE(body []byte) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), len(body)+1)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			return []byte(strings.TrimSpace(data)), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to scan event stream"), ErrProtocol)
	}
	return nil, errors.WithMessage(ErrProtocol, "no data found in event stream")
}
