package packet

import (
	"bytes"
	"testing"
)

func TestDISCONNECT_Kind(t *testing.T) {
	disconnect := &DISCONNECT{FixedHeader: &FixedHeader{Kind: 0xE, Version: VERSION311}}
	if disconnect.Kind() != 0x0E {
		t.Errorf("DISCONNECT.Kind() = %d, want 0x0E", disconnect.Kind())
	}
}

func TestDISCONNECT_PackUnpack(t *testing.T) {
	disconnect := &DISCONNECT{FixedHeader: &FixedHeader{Kind: 0xE, Version: VERSION311}}

	var buf bytes.Buffer
	if err := disconnect.Pack(&buf); err != nil {
		t.Fatalf("Pack() failed: %v", err)
	}

	want := []byte{0xE0, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("Pack() = %v, want %v", buf.Bytes(), want)
	}

	fixed := &FixedHeader{}
	if err := fixed.Unpack(&buf); err != nil {
		t.Fatalf("FixedHeader.Unpack() failed: %v", err)
	}
	if fixed.RemainingLength != 0 {
		t.Errorf("RemainingLength = %d, want 0", fixed.RemainingLength)
	}

	out := &DISCONNECT{FixedHeader: fixed}
	if err := out.Unpack(&buf); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
}
