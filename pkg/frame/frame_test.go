package frame

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader returns at most size bytes per Read.
type chunkedReader struct {
	data []byte
	size func() int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size()
	if n > len(p) {
		n = len(p)
	}
	if n > len(c.data) {
		n = len(c.data)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func samplePayloads() [][]byte {
	big := make([]byte, 70000)
	for i := range big {
		big[i] = byte(i % 251)
	}
	return [][]byte{
		[]byte("pickup truck 7"),
		{},
		{0x80, 0xff, 0x00, 0x01},
		bytes.Repeat([]byte{'x'}, 127),
		bytes.Repeat([]byte{'y'}, 128),
		big,
	}
}

func TestEncode_LengthPrefix(t *testing.T) {
	assert.Equal(t, []byte{0x03, 'a', 'b', 'c'}, Encode([]byte("abc")))
	assert.Equal(t, []byte{0x00}, Encode(nil))

	framed := Encode(bytes.Repeat([]byte{'z'}, 300))
	assert.Equal(t, []byte{0xac, 0x02}, framed[:2])
	assert.Len(t, framed, 302)
}

func TestDecoder_RoundTripWhole(t *testing.T) {
	var stream []byte
	for _, p := range samplePayloads() {
		stream = AppendFrame(stream, p)
	}

	dec := NewDecoder(DefaultLimits())
	dec.Feed(stream)
	for i, want := range samplePayloads() {
		got, ok, err := dec.Next()
		require.NoError(t, err)
		require.True(t, ok, "frame %d not ready", i)
		assert.Equal(t, want, got, "frame %d", i)
	}
	_, ok, err := dec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, dec.Buffered())
}

func TestDecoder_ByteAtATime(t *testing.T) {
	var stream []byte
	for _, p := range samplePayloads() {
		stream = AppendFrame(stream, p)
	}

	dec := NewDecoder(DefaultLimits())
	var got [][]byte
	for _, b := range stream {
		dec.Feed([]byte{b})
		for {
			p, ok, err := dec.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			got = append(got, p)
		}
	}
	assert.Equal(t, samplePayloads(), got)
}

func TestReader_RandomChunks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var stream []byte
	for _, p := range samplePayloads() {
		stream = AppendFrame(stream, p)
	}

	for trial := 0; trial < 20; trial++ {
		r := NewReader(&chunkedReader{
			data: append([]byte(nil), stream...),
			size: func() int { return 1 + rng.Intn(7) },
		}, DefaultLimits())

		for i, want := range samplePayloads() {
			got, err := r.ReadFrame()
			require.NoError(t, err, "trial %d frame %d", trial, i)
			assert.Equal(t, want, got)
		}
		_, err := r.ReadFrame()
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestReader_TruncatedFrame(t *testing.T) {
	framed := Encode([]byte("delivering"))
	r := NewReader(bytes.NewReader(framed[:5]), DefaultLimits())

	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecoder_TooLarge(t *testing.T) {
	dec := NewDecoder(Limits{MaxPayloadBytes: 8})
	dec.Feed(Encode(bytes.Repeat([]byte{1}, 9)))

	_, _, err := dec.Next()
	assert.True(t, errors.Is(err, ErrFrameTooLarge), "got %v", err)
}

func TestDecoder_MalformedLength(t *testing.T) {
	dec := NewDecoder(DefaultLimits())
	dec.Feed(bytes.Repeat([]byte{0xff}, 9))

	_, ok, err := dec.Next()
	require.NoError(t, err, "nine continuation bytes may still be a valid prefix")
	assert.False(t, ok)

	dec.Feed([]byte{0xff})
	_, _, err = dec.Next()
	assert.ErrorIs(t, err, ErrMalformedLength)
}

func TestWriteFrame_RespectsLimits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("ok"), DefaultLimits()))
	assert.Equal(t, []byte{0x02, 'o', 'k'}, buf.Bytes())

	err := WriteFrame(&buf, []byte("too long"), Limits{MaxPayloadBytes: 2})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecoder_Reset(t *testing.T) {
	dec := NewDecoder(DefaultLimits())
	dec.Feed([]byte{0x05, 'a', 'b'})
	assert.Equal(t, 3, dec.Buffered())

	dec.Reset()
	assert.Zero(t, dec.Buffered())
	dec.Feed(Encode([]byte("idle")))
	p, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("idle"), p)
}

func TestDecoder_ManySmallFramesInOneFeed(t *testing.T) {
	var stream []byte
	for i := 0; i < 4096; i++ {
		stream = AppendFrame(stream, []byte{byte(i)})
	}
	tail := Encode([]byte("tail"))
	stream = append(stream, tail[:3]...)

	dec := NewDecoder(DefaultLimits())
	dec.Feed(stream)
	held := len(dec.buf)

	for i := 0; i < 4096; i++ {
		p, ok, err := dec.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte{byte(i)}, p)
	}
	_, ok, err := dec.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	// Consumed frames are skipped, not shifted out one by one.
	assert.Equal(t, held, len(dec.buf))
	assert.Equal(t, 3, dec.Buffered())

	dec.Feed(tail[3:])
	assert.Zero(t, dec.off)
	assert.Equal(t, len(tail), len(dec.buf))

	p, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("tail"), p)
	assert.Zero(t, dec.Buffered())
}
