package packet

import (
	"bytes"
	"testing"
)

func TestSUBSCRIBE_Kind(t *testing.T) {
	sub := &SUBSCRIBE{FixedHeader: &FixedHeader{}}
	if sub.Kind() != 0x08 {
		t.Errorf("SUBSCRIBE.Kind() = %d, want 0x08", sub.Kind())
	}
}

func TestSUBSCRIBE_PackUnpack(t *testing.T) {
	sub := &SUBSCRIBE{
		FixedHeader:   &FixedHeader{Kind: 0x08, QoS: 1},
		PacketID:      5,
		Subscriptions: []Subscription{{TopicFilter: "sdcp/status/000001", MaximumQoS: 0}},
	}

	var buf bytes.Buffer
	if err := sub.Pack(&buf); err != nil {
		t.Fatalf("Pack() failed: %v", err)
	}

	fixed := &FixedHeader{}
	if err := fixed.Unpack(&buf); err != nil {
		t.Fatalf("FixedHeader.Unpack() failed: %v", err)
	}

	out := &SUBSCRIBE{FixedHeader: fixed}
	if err := out.Unpack(&buf); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if out.PacketID != 5 {
		t.Errorf("PacketID = %d, want 5", out.PacketID)
	}
	if len(out.Subscriptions) != 1 || out.Subscriptions[0].TopicFilter != "sdcp/status/000001" {
		t.Errorf("Subscriptions = %+v", out.Subscriptions)
	}
}

func TestSUBSCRIBE_Unpack_RejectsWildcard(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write(i2b(1))
	buf.Write(s2b("sdcp/+/000001"))
	buf.WriteByte(0x00)

	sub := &SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x08, QoS: 1}}
	if err := sub.Unpack(buf); err == nil {
		t.Error("Unpack() should reject a wildcard topic filter")
	}
}

func TestSUBSCRIBE_Unpack_RejectsEmptyPayload(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write(i2b(1))

	sub := &SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x08, QoS: 1}}
	if err := sub.Unpack(buf); err == nil {
		t.Error("Unpack() should reject a SUBSCRIBE naming no topic filters")
	}
}

func TestSUBSCRIBE_Unpack_RejectsBadQoS(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write(i2b(1))
	buf.Write(s2b("sdcp/status/000001"))
	buf.WriteByte(0x03)

	sub := &SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x08, QoS: 1}}
	if err := sub.Unpack(buf); err == nil {
		t.Error("Unpack() should reject a reserved QoS value of 3")
	}
}
