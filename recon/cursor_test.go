package recon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestCursorPrimitives(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(7)
	binary.Write(&buf, binary.LittleEndian, uint32(42))
	binary.Write(&buf, binary.LittleEndian, int32(-3))
	binary.Write(&buf, binary.LittleEndian, uint64(1<<40))
	binary.Write(&buf, binary.LittleEndian, math.Float64bits(2.5))

	cur := newCursor(&buf)

	if v, err := cur.readU8(); err != nil || v != 7 {
		t.Fatalf("readU8 = %d, %v, want 7", v, err)
	}
	if v, err := cur.readU32(); err != nil || v != 42 {
		t.Fatalf("readU32 = %d, %v, want 42", v, err)
	}
	if v, err := cur.readI32(); err != nil || v != -3 {
		t.Fatalf("readI32 = %d, %v, want -3", v, err)
	}
	if v, err := cur.readU64(); err != nil || v != 1<<40 {
		t.Fatalf("readU64 = %d, %v, want 2^40", v, err)
	}
	if v, err := cur.readF64(); err != nil || v != 2.5 {
		t.Fatalf("readF64 = %g, %v, want 2.5", v, err)
	}
	if cur.offset() != 25 {
		t.Errorf("offset = %d, want 25", cur.offset())
	}
}

func TestCursorReadString(t *testing.T) {
	cur := newCursor(bytes.NewReader([]byte("cam_001.jpg\x00rest")))

	s, err := cur.readString()
	if err != nil {
		t.Fatalf("readString: %v", err)
	}
	if s != "cam_001.jpg" {
		t.Errorf("readString = %q, want %q", s, "cam_001.jpg")
	}
	// The terminator is consumed but not part of the string.
	if cur.offset() != 12 {
		t.Errorf("offset = %d, want 12", cur.offset())
	}
}

func TestCursorTruncation(t *testing.T) {
	// 8-byte header promised, only 3 bytes present.
	cur := newCursor(bytes.NewReader([]byte{1, 2, 3}))

	_, err := cur.readU64()
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Offset != 0 {
		t.Errorf("Offset = %d, want 0", fe.Offset)
	}
	if fe.Expected != 8 || fe.Actual != 3 {
		t.Errorf("Expected/Actual = %d/%d, want 8/3", fe.Expected, fe.Actual)
	}
}

func TestCursorTruncationMidStream(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(99))
	buf.Write([]byte{1, 2}) // partial u32

	cur := newCursor(&buf)
	if _, err := cur.readU64(); err != nil {
		t.Fatalf("readU64: %v", err)
	}

	_, err := cur.readU32()
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if fe.Offset != 8 {
		t.Errorf("Offset = %d, want 8", fe.Offset)
	}
}
