package journal

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryEncodeDecode(t *testing.T) {
	e := &Entry{
		LSN:       42,
		Op:        OpAppendToGroup,
		Path:      "1.2",
		Payload:   []byte(`{"description":"Flight"}`),
		Timestamp: time.Unix(1710000000, 0),
	}

	data := e.Encode()
	assert.Len(t, data, e.Size())

	got, err := DecodeEntry(data)
	require.NoError(t, err)
	assert.Equal(t, e.LSN, got.LSN)
	assert.Equal(t, e.Op, got.Op)
	assert.Equal(t, e.Path, got.Path)
	assert.Equal(t, e.Payload, got.Payload)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))
}

func TestEntryEncodeDecode_EmptyPayload(t *testing.T) {
	e := &Entry{LSN: 3, Op: OpRemove, Path: "0", Timestamp: time.Now()}

	got, err := DecodeEntry(e.Encode())
	require.NoError(t, err)
	assert.Equal(t, "0", got.Path)
	assert.Empty(t, got.Payload)
}

func TestDecodeEntry_Damage(t *testing.T) {
	e := &Entry{LSN: 1, Op: OpAppend, Payload: []byte(`{"description":"x"}`), Timestamp: time.Now()}
	data := e.Encode()

	_, err := DecodeEntry(data[:10])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DecodeEntry(data[:len(data)-2])
	assert.ErrorIs(t, err, ErrTruncated)

	flipped := bytes.Clone(data)
	flipped[EntryHeaderSize+3] ^= 0xff
	_, err = DecodeEntry(flipped)
	assert.ErrorIs(t, err, ErrCorrupted)

	unknown := (&Entry{LSN: 1, Op: Op(9), Timestamp: time.Now()}).Encode()
	_, err = DecodeEntry(unknown)
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "append", OpAppend.String())
	assert.Equal(t, "append_to_group", OpAppendToGroup.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "replace", OpReplace.String())
	assert.Equal(t, "unknown", Op(0).String())
}

func TestReadAll_StopsAtDamage(t *testing.T) {
	var buf bytes.Buffer
	first := (&Entry{LSN: 1, Op: OpAppend, Payload: []byte(`{}`), Timestamp: time.Now()}).Encode()
	second := (&Entry{LSN: 2, Op: OpRemove, Path: "0", Timestamp: time.Now()}).Encode()
	buf.Write(first)
	second[len(second)-1] ^= 0xff
	buf.Write(second)

	entries, good, err := ReadAll(&buf)
	assert.ErrorIs(t, err, ErrCorrupted)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].LSN)
	assert.Equal(t, int64(len(first)), good)
}

func TestReadAll_Clean(t *testing.T) {
	var buf bytes.Buffer
	for i := uint64(1); i <= 3; i++ {
		buf.Write((&Entry{LSN: i, Op: OpRemove, Path: "0", Timestamp: time.Now()}).Encode())
	}
	size := int64(buf.Len())

	entries, good, err := ReadAll(&buf)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, size, good)

	entries, good, err = ReadAll(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, good)
}
