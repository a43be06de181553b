// Package streamdecode implements the line-buffered state machine that
// accepts either of the two framings an upstream might use for a
// streamed response (spec.md §4.2/§9): one JSON record per line, or
// SSE-style "data: <json>" lines separated by blank lines. A single
// public iterator (Decoder.Next) yields decoded records regardless of
// which framing the upstream actually used.
package streamdecode

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Decoder reads framed records from an underlying stream.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps r. The caller remains responsible for closing r once
// decoding finishes (the Decoder never closes it itself).
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: bufio.NewScanner(r)}
}

// Next returns the next decoded JSON record, or io.EOF when the stream
// ends cleanly. Blank lines, SSE comment lines (starting with ":"), and
// the literal "[DONE]" sentinel (in either bare or "data: " form) are
// swallowed rather than returned.
func (d *Decoder) Next(out any) error {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		payload := line
		if strings.HasPrefix(line, "data:") {
			payload = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}

		if payload == "[DONE]" {
			continue
		}
		if payload == "" {
			continue
		}

		return json.Unmarshal([]byte(payload), out)
	}

	if err := d.scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
