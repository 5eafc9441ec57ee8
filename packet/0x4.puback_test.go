package packet

import (
	"bytes"
	"testing"
)

func TestPUBACK_Kind(t *testing.T) {
	puback := &PUBACK{FixedHeader: &FixedHeader{}}
	if puback.Kind() != 0x04 {
		t.Errorf("PUBACK.Kind() = %d, want 0x04", puback.Kind())
	}
}

func TestPUBACK_PackUnpack(t *testing.T) {
	puback := &PUBACK{FixedHeader: &FixedHeader{Kind: 0x04}, PacketID: 7}

	var buf bytes.Buffer
	if err := puback.Pack(&buf); err != nil {
		t.Fatalf("Pack() failed: %v", err)
	}

	fixed := &FixedHeader{}
	if err := fixed.Unpack(&buf); err != nil {
		t.Fatalf("FixedHeader.Unpack() failed: %v", err)
	}

	out := &PUBACK{FixedHeader: fixed}
	if err := out.Unpack(&buf); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if out.PacketID != 7 {
		t.Errorf("PacketID = %d, want 7", out.PacketID)
	}
}

func TestPUBACK_Unpack_Short(t *testing.T) {
	puback := &PUBACK{FixedHeader: &FixedHeader{}}
	if err := puback.Unpack(bytes.NewBuffer([]byte{0x00})); err == nil {
		t.Error("Unpack() should reject a truncated PUBACK")
	}
}
