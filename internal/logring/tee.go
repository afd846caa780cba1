package logring

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// teeWriter forwards writes unchanged to dst and records every completed
// line in the ring.
type teeWriter struct {
	dst  io.Writer
	ring *Ring

	mu  sync.Mutex
	buf []byte
}

// Tee returns a writer that copies everything to dst and appends each
// newline-terminated line (without the trailing "\n" or "\r\n") to ring.
// A nil dst discards the forwarded bytes. Partial lines are held until their
// newline arrives.
func Tee(dst io.Writer, ring *Ring) io.Writer {
	if dst == nil {
		dst = io.Discard
	}
	return &teeWriter{dst: dst, ring: ring}
}

func (t *teeWriter) Write(p []byte) (int, error) {
	n, err := t.dst.Write(p)
	t.mu.Lock()
	t.buf = append(t.buf, p...)
	for {
		idx := bytes.IndexByte(t.buf, '\n')
		if idx < 0 {
			break
		}
		t.ring.Append(strings.TrimRight(string(t.buf[:idx]), "\r"))
		t.buf = t.buf[idx+1:]
	}
	t.mu.Unlock()
	if err != nil {
		return n, err
	}
	return len(p), nil
}
