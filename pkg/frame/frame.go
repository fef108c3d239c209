package frame

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxVarintLen is the longest encoding of a 64-bit varint.
const maxVarintLen = 10

var (
	ErrFrameTooLarge   = errors.New("frame: payload too large")
	ErrMalformedLength = errors.New("frame: malformed length prefix")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 16 * 1024 * 1024,
	}
}

func (l Limits) check(n uint64) error {
	if l.MaxPayloadBytes > 0 && n > l.MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, n, l.MaxPayloadBytes)
	}
	return nil
}

// Encode returns payload with its length prefix.
func Encode(payload []byte) []byte {
	return AppendFrame(make([]byte, 0, protowire.SizeVarint(uint64(len(payload)))+len(payload)), payload)
}

// AppendFrame appends the framed payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	dst = protowire.AppendVarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// WriteFrame writes one framed payload with a single Write call.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if err := limits.check(uint64(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(Encode(payload))
	return err
}

// Decoder turns an arbitrarily chunked byte stream into payloads.
// It is not safe for concurrent use; one Decoder belongs to one connection.
type Decoder struct {
	buf    []byte
	off    int // start of the unread bytes in buf
	limits Limits
}

// NewDecoder creates an empty decoder.
func NewDecoder(limits Limits) *Decoder {
	return &Decoder{limits: limits}
}

// Feed appends newly received bytes. Consumed bytes are dropped here, once
// per call, rather than after every frame.
func (d *Decoder) Feed(p []byte) {
	if d.off > 0 {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}
	d.buf = append(d.buf, p...)
}

// Next returns the next complete payload. ok is false when more bytes are
// needed. A non-nil error means the stream is corrupt and must be dropped.
func (d *Decoder) Next() (payload []byte, ok bool, err error) {
	b := d.buf[d.off:]
	if len(b) == 0 {
		return nil, false, nil
	}
	if !varintComplete(b) {
		if len(b) >= maxVarintLen {
			return nil, false, ErrMalformedLength
		}
		return nil, false, nil
	}
	size, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedLength, protowire.ParseError(n))
	}
	if err := d.limits.check(size); err != nil {
		return nil, false, err
	}
	if uint64(len(b)-n) < size {
		return nil, false, nil
	}
	end := n + int(size)
	payload = make([]byte, size)
	copy(payload, b[n:end])

	d.off += end
	if d.off == len(d.buf) {
		d.buf = d.buf[:0]
		d.off = 0
	}
	return payload, true, nil
}

// Buffered returns the number of bytes held for an incomplete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// Reset discards buffered bytes. Used when a connection is replaced.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.off = 0
}

// varintComplete reports whether b starts with a terminated varint.
func varintComplete(b []byte) bool {
	for i := 0; i < len(b) && i < maxVarintLen; i++ {
		if b[i] < 0x80 {
			return true
		}
	}
	return false
}

// Reader reads framed payloads from an underlying stream.
type Reader struct {
	r     io.Reader
	dec   *Decoder
	chunk []byte
}

// NewReader creates a Reader with a 32KiB read chunk.
func NewReader(r io.Reader, limits Limits) *Reader {
	return &Reader{
		r:     r,
		dec:   NewDecoder(limits),
		chunk: make([]byte, 32*1024),
	}
}

// ReadFrame blocks until a full payload is available or the stream fails.
// A stream that ends cleanly between frames returns io.EOF; one that ends
// inside a frame returns io.ErrUnexpectedEOF.
func (r *Reader) ReadFrame() ([]byte, error) {
	for {
		payload, ok, err := r.dec.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			return payload, nil
		}

		n, err := r.r.Read(r.chunk)
		if n > 0 {
			r.dec.Feed(r.chunk[:n])
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && r.dec.Buffered() > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}
