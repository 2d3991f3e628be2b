// ABOUTME: Applies timeline mutations to a store and journals them in order
// ABOUTME: Replays recovered entries onto a store at startup

package journal

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/nainya/timejump/pkg/timeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Observer is told about every entry written
type Observer interface {
	JournalWritten(op string, size int)
}

// Recorder serializes timeline mutations so the journal order matches the
// store's revision order. A Recorder without a journal only applies them.
type Recorder struct {
	mu      sync.Mutex
	store   *timeline.Store
	journal *Journal
	log     zerolog.Logger
	obs     Observer
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the recorder's logger
func WithRecorderLogger(log zerolog.Logger) RecorderOption {
	return func(r *Recorder) { r.log = log }
}

// WithObserver registers an observer for written entries
func WithObserver(obs Observer) RecorderOption {
	return func(r *Recorder) { r.obs = obs }
}

// NewRecorder creates a recorder over store. j may be nil.
func NewRecorder(store *timeline.Store, j *Journal, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		journal: j,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store
func (r *Recorder) Store() *timeline.Store { return r.store }

// Append appends n at the top level
func (r *Recorder) Append(n timeline.Node) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, err := r.store.Append(n)
	if err != nil {
		return rev, err
	}
	return rev, r.record(OpAppend, "", func() ([]byte, error) {
		return encodeNode(n)
	})
}

// AppendToGroup appends e to the group at group
func (r *Recorder) AppendToGroup(group timeline.Path, e *timeline.Event) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, err := r.store.AppendToGroup(group, e)
	if err != nil {
		return rev, err
	}
	return rev, r.record(OpAppendToGroup, group.String(), func() ([]byte, error) {
		return encodeNode(e)
	})
}

// Remove deletes the node at p
func (r *Recorder) Remove(p timeline.Path) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, err := r.store.Remove(p)
	if err != nil {
		return rev, err
	}
	return rev, r.record(OpRemove, p.String(), func() ([]byte, error) {
		return nil, nil
	})
}

// Replace swaps the whole timeline
func (r *Recorder) Replace(nodes []timeline.Node) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev := r.store.Replace(nodes)
	return rev, r.record(OpReplace, "", func() ([]byte, error) {
		return encodeTimeline(r.store.Nodes())
	})
}

// Compact rewrites the journal as one replace entry of the current timeline
func (r *Recorder) Compact() error {
	if r.journal == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := encodeTimeline(r.store.Nodes())
	if err != nil {
		return err
	}
	return r.journal.Compact(payload)
}

// record journals a mutation that the store already accepted. A failure
// here leaves the in-memory timeline ahead of the file.
func (r *Recorder) record(op Op, path string, payload func() ([]byte, error)) error {
	if r.journal == nil {
		return nil
	}
	data, err := payload()
	if err != nil {
		return fmt.Errorf("encode %s entry: %w", op, err)
	}
	e, err := r.journal.Write(op, path, data)
	if err != nil {
		r.log.Error().Err(err).Str("op", op.String()).Msg("journal write failed")
		return err
	}
	if r.obs != nil {
		r.obs.JournalWritten(op.String(), e.Size())
	}
	return nil
}

// ReplayStats summarizes a replay
type ReplayStats struct {
	Entries int
	Applied int
	Skipped int
	LastLSN uint64
}

// Replay applies entries to the store without journaling them again.
// Entries that no longer apply, such as a removal of a path the base
// timeline no longer has, are skipped and logged.
func (r *Recorder) Replay(entries []*Entry, loc *time.Location) ReplayStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := ReplayStats{Entries: len(entries)}
	for _, e := range entries {
		if e.LSN > stats.LastLSN {
			stats.LastLSN = e.LSN
		}
		if err := apply(r.store, e, loc); err != nil {
			stats.Skipped++
			r.log.Warn().
				Err(err).
				Uint64("lsn", e.LSN).
				Str("op", e.Op.String()).
				Str("path", e.Path).
				Msg("skipping journal entry")
			continue
		}
		stats.Applied++
	}
	return stats
}

func apply(st *timeline.Store, e *Entry, loc *time.Location) error {
	switch e.Op {
	case OpAppend:
		nodes, err := decodeNodes(e.Payload, loc)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if _, err := st.Append(n); err != nil {
				return err
			}
		}
		return nil

	case OpAppendToGroup:
		p, err := timeline.ParsePath(e.Path)
		if err != nil {
			return err
		}
		ev, err := timeline.DecodeEvent(bytes.NewReader(e.Payload), loc)
		if err != nil {
			return err
		}
		_, err = st.AppendToGroup(p, ev)
		return err

	case OpRemove:
		p, err := timeline.ParsePath(e.Path)
		if err != nil {
			return err
		}
		_, err = st.Remove(p)
		return err

	case OpReplace:
		nodes, err := timeline.Decode(bytes.NewReader(e.Payload), loc)
		if err != nil {
			return err
		}
		st.Replace(nodes)
		return nil
	}
	return fmt.Errorf("%w: op %d", ErrUnknownOp, e.Op)
}

func encodeNode(n timeline.Node) ([]byte, error) {
	wire := timeline.ToJSON([]timeline.Node{n})
	if len(wire) != 1 {
		return nil, fmt.Errorf("node has no wire form")
	}
	return json.Marshal(wire[0])
}

func decodeNodes(payload []byte, loc *time.Location) ([]timeline.Node, error) {
	var wire timeline.NodeJSON
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return timeline.FromJSON([]timeline.NodeJSON{wire}, loc)
}

func encodeTimeline(nodes []timeline.Node) ([]byte, error) {
	return json.Marshal(timeline.File{Nodes: timeline.ToJSON(nodes)})
}
