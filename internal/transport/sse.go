// ABOUTME: Incremental decoder for server-sent event streams
// ABOUTME: Byte-buffered so multi-byte UTF-8 sequences split across reads survive

package transport

import (
	"bytes"
	"io"
	"strings"
)

const dataPrefix = "data: "

// eventDelimiter separates events: two consecutive line breaks.
var eventDelimiter = []byte("\n\n")

// decodeEventStream reads r incrementally and calls emit with the raw
// JSON payload of every "data: " line. Bytes accumulate in a single
// buffer and events are only split on ASCII newlines, so a multi-byte
// UTF-8 sequence spanning two reads is never torn apart. A residual
// partial line after the final read that still carries a data prefix is
// emitted as a final event (some transports omit the trailing blank
// line).
func decodeEventStream(r io.Reader, emit func(raw []byte)) error {
	var buf []byte
	chunk := make([]byte, 2048)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				i := bytes.Index(buf, eventDelimiter)
				if i < 0 {
					break
				}
				emitEvent(buf[:i], emit)
				buf = buf[i+len(eventDelimiter):]
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	tail := strings.TrimSpace(string(buf))
	if strings.HasPrefix(tail, "data:") {
		payload := strings.TrimSpace(strings.TrimPrefix(tail, "data:"))
		if payload != "" {
			emit([]byte(payload))
		}
	}

	return nil
}

// emitEvent extracts data payloads from one blank-line-delimited event.
// Lines without the data prefix are ignored.
func emitEvent(event []byte, emit func(raw []byte)) {
	for _, line := range strings.Split(string(event), "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == "" {
			continue
		}
		emit([]byte(payload))
	}
}
