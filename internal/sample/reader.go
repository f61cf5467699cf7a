package sample

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"sync"

	"github.com/asyncftrl/ftrlgo/internal/numeric"
)

// Reader produces a lazy, finite sequence of samples from a LIBSVM-style
// text stream. It supports two access patterns:
//
//   - ReadSample: single-producer, serialized. One caller at a time reads
//     using the Reader's own internal buffer, which is reused (grown in
//     place, never reseated to a pointer the caller can see) across calls
//     to avoid a per-line allocation.
//   - ReadSampleShared: multi-producer. Each call holds the Reader's
//     mutex only long enough to pull one raw line into a freshly owned
//     buffer; parsing happens outside the lock so concurrent callers
//     never block each other on anything but the underlying stream read.
//
// Both modes guarantee that concurrent callers observe disjoint lines and
// that end-of-stream is observed by all callers once the underlying
// stream is exhausted.
type Reader[T numeric.Float] struct {
	br  *bufio.Reader
	mu  sync.Mutex
	buf []byte
}

// New wraps an io.Reader (a file, stdin, or anything else) as a sample
// stream. Read errors during line scanning are treated as end-of-stream,
// per spec: a fatal I/O failure ends the pass, it does not panic.
func New[T numeric.Float](r io.Reader) *Reader[T] {
	return &Reader[T]{br: bufio.NewReaderSize(r, 64*1024)}
}

// ReadSample reads and parses the next parseable line using the Reader's
// internal buffer, skipping lines whose label fails to parse. The mutex
// is held across both the read and the parse, so concurrent callers are
// serialized and never share the buffer; ReadSampleShared is the path
// that lets callers parse in parallel.
func (r *Reader[T]) ReadSample() (Sample[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		line, ok := readLineInto(r.br, &r.buf)
		if !ok {
			return Sample[T]{}, false
		}
		if s, ok := parseLine[T](line); ok {
			return s, true
		}
	}
}

// ReadSampleShared reads and parses the next parseable line using a
// buffer owned solely by this call, skipping lines whose label fails to
// parse, so it is safe for many goroutines to call concurrently: each
// receives a disjoint line, and none blocks another past a single
// underlying line read.
func (r *Reader[T]) ReadSampleShared() (Sample[T], bool) {
	for {
		var local []byte
		r.mu.Lock()
		line, ok := readLineInto(r.br, &local)
		r.mu.Unlock()
		if !ok {
			return Sample[T]{}, false
		}
		if s, ok := parseLine[T](line); ok {
			return s, true
		}
	}
}

// readLineInto reads one line (including its trailing newline, if any)
// into *buf, reusing *buf's backing array and growing it geometrically
// via append as needed. Returns ok=false only at end of stream (including
// on any read error, which the spec treats as end-of-stream for the
// current pass).
func readLineInto(br *bufio.Reader, buf *[]byte) ([]byte, bool) {
	b := (*buf)[:0]
	for {
		c, err := br.ReadByte()
		if err != nil {
			*buf = b
			if len(b) == 0 {
				return nil, false
			}
			return b, true
		}
		b = append(b, c)
		if c == '\n' {
			*buf = b
			return b, true
		}
	}
}

// parseLine implements the grammar of spec.md §6:
//
//	line  := label (WS token)* [WS] NL
//	token := uint ':' real
//	label := real   // negatives clamped to 0
//
// A line whose label fails to parse is dropped entirely (ok=false).
// Malformed index:value tokens are dropped individually; the rest of the
// line still contributes.
func parseLine[T numeric.Float](line []byte) (Sample[T], bool) {
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return Sample[T]{}, false
	}

	label, err := parseFloat[T](fields[0])
	if err != nil {
		return Sample[T]{}, false
	}
	if label < 0 {
		label = 0
	}

	var feats []Feature[T]
	for _, tok := range fields[1:] {
		idx, val, ok := parseFeatureToken[T](tok)
		if !ok {
			continue
		}
		feats = append(feats, Feature[T]{Index: idx, Value: val})
	}

	return Sample[T]{Label: label, Features: feats}, true
}

func parseFeatureToken[T numeric.Float](tok []byte) (uint32, T, bool) {
	i := bytes.IndexByte(tok, ':')
	if i < 0 {
		return 0, 0, false
	}
	idx, err := strconv.ParseUint(string(tok[:i]), 10, 32)
	if err != nil {
		return 0, 0, false
	}
	val, err := parseFloat[T](tok[i+1:])
	if err != nil {
		return 0, 0, false
	}
	return uint32(idx), val, true
}

func parseFloat[T numeric.Float](tok []byte) (T, error) {
	var zero T
	bits := 64
	if _, is32 := any(zero).(float32); is32 {
		bits = 32
	}
	v, err := strconv.ParseFloat(string(tok), bits)
	if err != nil {
		return 0, err
	}
	return T(v), nil
}
