// ABOUTME: Append-only journal file of timeline mutations
// ABOUTME: Recovers the good prefix on open and supports compaction

package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// file is the part of *os.File the journal writes through
type file interface {
	io.Writer
	io.Seeker
	io.Closer
	Sync() error
	Truncate(size int64) error
}

// Journal is an append-only log file of timeline mutations
type Journal struct {
	path string
	log  zerolog.Logger
	sync bool

	// mu protects fd, size, closed and failed
	mu     sync.Mutex
	fd     file
	size   int64
	closed bool
	failed error

	// lsn is the last assigned Log Sequence Number (atomic)
	lsn uint64

	recovered []*Entry
	dropped   int64
}

// Option configures a Journal
type Option func(*Journal)

// WithSync controls whether every write is fsynced. Defaults to true.
func WithSync(enabled bool) Option {
	return func(j *Journal) { j.sync = enabled }
}

// WithLogger sets the journal's logger
func WithLogger(log zerolog.Logger) Option {
	return func(j *Journal) { j.log = log }
}

// Open opens or creates the journal at path. Entries already in the file
// are kept for Recovered; a damaged tail is cut off so new writes start on
// an entry boundary.
func Open(path string, opts ...Option) (*Journal, error) {
	j := &Journal{path: path, log: zerolog.Nop(), sync: true}
	for _, opt := range opts {
		opt(j)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	entries, good, readErr := ReadAll(fd)
	stat, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("stat journal: %w", err)
	}
	if readErr != nil {
		j.dropped = stat.Size() - good
		j.log.Warn().
			Err(readErr).
			Str("path", path).
			Int("kept_entries", len(entries)).
			Int64("dropped_bytes", j.dropped).
			Msg("journal tail is damaged, truncating")
		if err := fd.Truncate(good); err != nil {
			fd.Close()
			return nil, fmt.Errorf("truncate journal: %w", err)
		}
	}
	if _, err := fd.Seek(good, io.SeekStart); err != nil {
		fd.Close()
		return nil, fmt.Errorf("seek journal: %w", err)
	}

	j.fd = fd
	j.size = good
	j.recovered = entries
	for _, e := range entries {
		if e.LSN > j.lsn {
			j.lsn = e.LSN
		}
	}
	return j, nil
}

// Path returns the journal file path
func (j *Journal) Path() string { return j.path }

// Recovered returns the entries that were in the file when it was opened
func (j *Journal) Recovered() []*Entry { return j.recovered }

// Dropped returns how many damaged tail bytes Open discarded
func (j *Journal) Dropped() int64 { return j.dropped }

// LastLSN returns the most recently assigned Log Sequence Number
func (j *Journal) LastLSN() uint64 { return atomic.LoadUint64(&j.lsn) }

// Size returns the current file size in bytes
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Write appends one mutation and returns the entry written
func (j *Journal) Write(op Op, path string, payload []byte) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil, ErrClosed
	}
	if j.failed != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, j.failed)
	}

	e := &Entry{
		LSN:       atomic.LoadUint64(&j.lsn) + 1,
		Op:        op,
		Path:      path,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if _, err := j.fd.Write(e.Encode()); err != nil {
		return nil, j.rollback(fmt.Errorf("write journal entry: %w", err))
	}
	if j.sync {
		if err := j.fd.Sync(); err != nil {
			return nil, j.rollback(fmt.Errorf("fsync journal: %w", err))
		}
	}
	j.size += int64(e.Size())
	atomic.StoreUint64(&j.lsn, e.LSN)
	return e, nil
}

// rollback cuts the file back to the last acknowledged entry after a failed
// write. If that fails too the journal refuses further writes, since later
// entries would land behind bytes that recovery cannot read past.
func (j *Journal) rollback(cause error) error {
	err := j.fd.Truncate(j.size)
	if err == nil {
		_, err = j.fd.Seek(j.size, io.SeekStart)
	}
	if err != nil {
		j.failed = fmt.Errorf("%v; rollback: %w", cause, err)
		j.log.Error().
			Err(j.failed).
			Str("path", j.path).
			Int64("size", j.size).
			Msg("journal rollback failed, refusing writes")
		return fmt.Errorf("%w: %v", ErrFailed, j.failed)
	}
	j.log.Warn().Err(cause).Str("path", j.path).Msg("journal write rolled back")
	return cause
}

// Compact rewrites the journal as a single replace entry holding payload,
// the encoded current timeline. The new file is swapped in with a rename.
func (j *Journal) Compact(payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}

	e := &Entry{
		LSN:       atomic.LoadUint64(&j.lsn) + 1,
		Op:        OpReplace,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	tmp := j.path + ".compact"
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create compacted journal: %w", err)
	}
	data := e.Encode()
	if _, err := fd.Write(data); err != nil {
		fd.Close()
		os.Remove(tmp)
		return fmt.Errorf("write compacted journal: %w", err)
	}
	if err := fd.Sync(); err != nil {
		fd.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync compacted journal: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		fd.Close()
		os.Remove(tmp)
		return fmt.Errorf("swap compacted journal: %w", err)
	}

	before := j.size
	j.fd.Close()
	j.fd = fd
	j.size = int64(len(data))
	j.failed = nil
	atomic.StoreUint64(&j.lsn, e.LSN)
	j.log.Info().
		Str("path", j.path).
		Uint64("lsn", e.LSN).
		Int64("bytes_before", before).
		Int64("bytes_after", j.size).
		Msg("journal compacted")
	return nil
}

// Close closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.fd.Close()
}
