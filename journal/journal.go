// Package journal records orchestrator events as length-prefixed msgpack
// frames.
//
// Each frame is a 4-byte big-endian payload length followed by one
// msgpack-encoded Entry. A journal is append-only and write-only from the
// client's point of view; it is never read back to restore a session.
package journal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/plandesk/types"
)

// Entry is one journaled orchestrator event.
type Entry struct {
	Version   string    `msgpack:"v" json:"v" yaml:"v"`
	Seq       uint64    `msgpack:"seq" json:"seq" yaml:"seq"`
	Kind      string    `msgpack:"kind" json:"kind" yaml:"kind"`
	SessionID string    `msgpack:"session_id" json:"session_id" yaml:"session_id"`
	QueryID   string    `msgpack:"query_id" json:"query_id" yaml:"query_id"`
	Attempt   int       `msgpack:"attempt,omitempty" json:"attempt,omitempty" yaml:"attempt,omitempty"`
	Status    string    `msgpack:"status,omitempty" json:"status,omitempty" yaml:"status,omitempty"`
	Detail    string    `msgpack:"detail,omitempty" json:"detail,omitempty" yaml:"detail,omitempty"`
	Applied   bool      `msgpack:"applied" json:"applied" yaml:"applied"`
	Timestamp time.Time `msgpack:"ts" json:"ts" yaml:"ts"`
}

// Key returns the query key of the entry.
func (e *Entry) Key() types.QueryKey {
	return types.QueryKey{SessionID: e.SessionID, QueryID: e.QueryID}
}

// Writer appends entries to a stream. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	closer io.Closer
	seq    uint64
}

// NewWriter creates a writer over w. Close flushes and, if w is an
// io.Closer, closes it.
func NewWriter(w io.Writer) *Writer {
	jw := &Writer{buf: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		jw.closer = c
	}
	return jw
}

// Create opens path for appending and returns a writer over it.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return NewWriter(f), nil
}

// Record appends one entry and flushes it. Seq and Version are assigned;
// a zero Timestamp is set to now.
func (w *Writer) Record(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	entry.Seq = w.seq
	entry.Version = types.ContractVersion
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	payload, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	if err := writeFrame(w.buf, payload); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	return w.buf.Flush()
}

// Close flushes buffered data and closes the underlying stream.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Reader decodes entries from a stream.
type Reader struct {
	r io.Reader
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next entry, or io.EOF at a clean end of stream.
func (r *Reader) Next() (*Entry, error) {
	payload, err := readFrame(r.r)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := msgpack.Unmarshal(payload, &entry); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode journal entry",
			Err:  err,
		}
	}
	return &entry, nil
}

// ReadAll decodes every entry in r. On a truncated tail it returns the
// entries read so far together with the error.
func ReadAll(r io.Reader) ([]Entry, error) {
	reader := NewReader(r)
	var entries []Entry
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, *entry)
	}
}
