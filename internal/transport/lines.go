package transport

import (
	"bytes"
	"strings"
)

// maxPendingLine bounds a partial line; a device that never sends '\n' must not grow memory.
const maxPendingLine = 4096

// lineBuffer accumulates raw chunks and splits them into lines.
type lineBuffer struct {
	pending []byte
	// discarding is set after a runaway line was dropped; input is skipped
	// until its terminating '\n' so the tail is never taken for a record.
	discarding bool
}

// push appends a chunk read from the device.
func (b *lineBuffer) push(chunk []byte) {
	if b.discarding {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			return
		}
		chunk = chunk[i+1:]
		b.discarding = false
	}
	b.pending = append(b.pending, chunk...)
	if len(b.pending) > maxPendingLine && bytes.IndexByte(b.pending, '\n') < 0 {
		b.pending = b.pending[:0]
		b.discarding = true
	}
}

// next pops the first complete line, if any.
func (b *lineBuffer) next() (string, bool) {
	i := bytes.IndexByte(b.pending, '\n')
	if i < 0 {
		return "", false
	}
	raw := string(b.pending[:i])
	b.pending = b.pending[i+1:]
	return cleanLine(raw), true
}

// cleanLine decodes a raw line as UTF-8 and trims surrounding whitespace (including '\r').
func cleanLine(raw string) string {
	return strings.TrimSpace(strings.ToValidUTF8(raw, "�"))
}
