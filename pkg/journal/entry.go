// ABOUTME: Binary framing for journal entries with CRC32 checksums
// ABOUTME: One entry records one timeline mutation

package journal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

// Op is the kind of timeline mutation an entry records
type Op byte

const (
	// OpAppend appends a top-level node
	OpAppend Op = 1

	// OpAppendToGroup appends an event to the group at Path
	OpAppendToGroup Op = 2

	// OpRemove removes the node at Path
	OpRemove Op = 3

	// OpReplace replaces the whole timeline; compaction writes one of these
	OpReplace Op = 4
)

func (o Op) String() string {
	switch o {
	case OpAppend:
		return "append"
	case OpAppendToGroup:
		return "append_to_group"
	case OpRemove:
		return "remove"
	case OpReplace:
		return "replace"
	}
	return "unknown"
}

const (
	// EntryHeaderSize is the fixed size of the entry header
	// Layout: LSN(8) + Op(1) + Reserved(3) + PathLen(4) + PayloadLen(4) + Timestamp(8)
	EntryHeaderSize = 28

	// MaxEntrySize bounds a single entry; larger length fields mean corruption
	MaxEntrySize = 64 << 20
)

// Entry is a single journal record
type Entry struct {
	LSN       uint64    // Log Sequence Number (monotonically increasing)
	Op        Op        // Mutation kind
	Path      string    // Target path for AppendToGroup and Remove
	Payload   []byte    // JSON node or timeline file
	Timestamp time.Time // Write time, second precision
}

// Encode serializes the entry with a trailing CRC32
// Format: [Header(28)] [Path] [Payload] [CRC32(4)]
func (e *Entry) Encode() []byte {
	pathLen := len(e.Path)
	payloadLen := len(e.Payload)
	buf := make([]byte, EntryHeaderSize+pathLen+payloadLen+4)

	binary.LittleEndian.PutUint64(buf[0:8], e.LSN)
	buf[8] = byte(e.Op)
	// bytes 9-11 are reserved
	binary.LittleEndian.PutUint32(buf[12:16], uint32(pathLen))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(payloadLen))
	binary.LittleEndian.PutUint64(buf[20:28], uint64(e.Timestamp.Unix()))

	offset := EntryHeaderSize
	copy(buf[offset:], e.Path)
	offset += pathLen
	copy(buf[offset:], e.Payload)
	offset += payloadLen

	crc := crc32.ChecksumIEEE(buf[:offset])
	binary.LittleEndian.PutUint32(buf[offset:offset+4], crc)
	return buf
}

// bodyLen returns the number of bytes following a header, CRC included
func bodyLen(header []byte) (int, error) {
	pathLen := binary.LittleEndian.Uint32(header[12:16])
	payloadLen := binary.LittleEndian.Uint32(header[16:20])
	n := uint64(pathLen) + uint64(payloadLen) + 4
	if n > MaxEntrySize {
		return 0, ErrCorrupted
	}
	return int(n), nil
}

// DecodeEntry deserializes one complete entry
func DecodeEntry(data []byte) (*Entry, error) {
	if len(data) < EntryHeaderSize+4 {
		return nil, ErrTruncated
	}

	n, err := bodyLen(data[:EntryHeaderSize])
	if err != nil {
		return nil, err
	}
	if len(data) < EntryHeaderSize+n {
		return nil, ErrTruncated
	}
	data = data[:EntryHeaderSize+n]

	end := len(data) - 4
	if binary.LittleEndian.Uint32(data[end:]) != crc32.ChecksumIEEE(data[:end]) {
		return nil, ErrCorrupted
	}

	e := &Entry{
		LSN:       binary.LittleEndian.Uint64(data[0:8]),
		Op:        Op(data[8]),
		Timestamp: time.Unix(int64(binary.LittleEndian.Uint64(data[20:28])), 0),
	}
	if e.Op < OpAppend || e.Op > OpReplace {
		return nil, fmt.Errorf("%w: op %d", ErrUnknownOp, e.Op)
	}

	pathLen := int(binary.LittleEndian.Uint32(data[12:16]))
	offset := EntryHeaderSize
	e.Path = string(data[offset : offset+pathLen])
	offset += pathLen
	if offset < end {
		e.Payload = make([]byte, end-offset)
		copy(e.Payload, data[offset:end])
	}
	return e, nil
}

// Size returns the encoded size of the entry
func (e *Entry) Size() int {
	return EntryHeaderSize + len(e.Path) + len(e.Payload) + 4
}

func (e *Entry) String() string {
	return fmt.Sprintf("journal[LSN=%d Op=%s Path=%q PayloadLen=%d]",
		e.LSN, e.Op, e.Path, len(e.Payload))
}
