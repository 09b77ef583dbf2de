package recon

import (
	"encoding/binary"
	"io"
	"math"
)

// cursor is a little-endian streaming reader that tracks its byte offset so
// decode failures can be reported with the exact position and the expected
// vs. actual byte count. All reconstruction records are composed from these
// primitive reads; there are no fixed-offset structs because camera
// parameter counts, observation counts and track lengths are all variable.
type cursor struct {
	r   io.Reader
	off int64
	buf [8]byte
}

func newCursor(r io.Reader) *cursor {
	return &cursor{r: r}
}

// offset returns the number of bytes consumed so far.
func (c *cursor) offset() int64 {
	return c.off
}

// fill reads exactly n bytes into the scratch buffer. A short read produces
// a FormatError carrying the current offset.
func (c *cursor) fill(n int) ([]byte, error) {
	b := c.buf[:n]
	got, err := io.ReadFull(c.r, b)
	if err != nil {
		return nil, &FormatError{Offset: c.off, Expected: n, Actual: got}
	}
	c.off += int64(n)
	return b, nil
}

func (c *cursor) readU8() (uint8, error) {
	b, err := c.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readU32() (uint32, error) {
	b, err := c.fill(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readI32() (int32, error) {
	v, err := c.readU32()
	return int32(v), err
}

func (c *cursor) readU64() (uint64, error) {
	b, err := c.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) readF64() (float64, error) {
	v, err := c.readU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// readF64s reads n consecutive float64 values.
func (c *cursor) readF64s(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := c.readF64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// readString reads a NUL-terminated UTF-8 string. The terminator is consumed
// but not returned.
func (c *cursor) readString() (string, error) {
	var out []byte
	for {
		b, err := c.readU8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
}
