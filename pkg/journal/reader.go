// ABOUTME: Sequential reader over a journal file
// ABOUTME: Stops at the first damaged entry and reports the last good offset

package journal

import (
	"bufio"
	"errors"
	"io"
)

// Reader reads entries from a journal stream
type Reader struct {
	r      *bufio.Reader
	offset int64 // bytes consumed by successfully decoded entries
}

// NewReader creates a reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next entry. It returns io.EOF at a clean end of stream,
// ErrTruncated when the stream ends inside an entry and ErrCorrupted when
// an entry fails its checksum.
func (r *Reader) Next() (*Entry, error) {
	header := make([]byte, EntryHeaderSize)
	n, err := io.ReadFull(r.r, header)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, ErrTruncated
	case err != nil:
		return nil, err
	}

	body, err := bodyLen(header)
	if err != nil {
		return nil, err
	}
	data := make([]byte, EntryHeaderSize+body)
	copy(data, header[:n])
	if _, err := io.ReadFull(r.r, data[EntryHeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}

	e, err := DecodeEntry(data)
	if err != nil {
		return nil, err
	}
	r.offset += int64(len(data))
	return e, nil
}

// Offset returns the byte offset just past the last good entry
func (r *Reader) Offset() int64 {
	return r.offset
}

// ReadAll reads entries until the end of the stream or the first damaged
// entry. The returned offset is where the good prefix ends; err is nil
// when the whole stream was read cleanly.
func ReadAll(r io.Reader) ([]*Entry, int64, error) {
	reader := NewReader(r)
	var entries []*Entry
	for {
		e, err := reader.Next()
		if err == io.EOF {
			return entries, reader.Offset(), nil
		}
		if err != nil {
			return entries, reader.Offset(), err
		}
		entries = append(entries, e)
	}
}
