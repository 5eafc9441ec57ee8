package packet

import (
	"bytes"
	"testing"
)

func TestPUBLISH_Kind(t *testing.T) {
	pub := &PUBLISH{FixedHeader: &FixedHeader{}}
	if pub.Kind() != 0x03 {
		t.Errorf("PUBLISH.Kind() = %d, want 0x03", pub.Kind())
	}
}

func TestPUBLISH_PackUnpack_QoS0(t *testing.T) {
	pub := &PUBLISH{
		FixedHeader: &FixedHeader{Kind: 0x03, QoS: 0},
		Message:     &Message{TopicName: "sdcp/status/000001", Content: []byte(`{"Status":{}}`)},
	}

	var buf bytes.Buffer
	if err := pub.Pack(&buf); err != nil {
		t.Fatalf("Pack() failed: %v", err)
	}

	fixed := &FixedHeader{}
	if err := fixed.Unpack(&buf); err != nil {
		t.Fatalf("FixedHeader.Unpack() failed: %v", err)
	}

	out := &PUBLISH{FixedHeader: fixed}
	if err := out.Unpack(&buf); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if out.Message.TopicName != pub.Message.TopicName {
		t.Errorf("TopicName = %q, want %q", out.Message.TopicName, pub.Message.TopicName)
	}
	if !bytes.Equal(out.Message.Content, pub.Message.Content) {
		t.Errorf("Content = %q, want %q", out.Message.Content, pub.Message.Content)
	}
	if out.PacketID != 0 {
		t.Errorf("PacketID = %d, want 0 for QoS 0", out.PacketID)
	}
}

func TestPUBLISH_PackUnpack_QoS1(t *testing.T) {
	pub := &PUBLISH{
		FixedHeader: &FixedHeader{Kind: 0x03, QoS: 1},
		PacketID:    42,
		Message:     &Message{TopicName: "sdcp/request/000001", Content: []byte("{}")},
	}

	var buf bytes.Buffer
	if err := pub.Pack(&buf); err != nil {
		t.Fatalf("Pack() failed: %v", err)
	}

	fixed := &FixedHeader{}
	if err := fixed.Unpack(&buf); err != nil {
		t.Fatalf("FixedHeader.Unpack() failed: %v", err)
	}

	out := &PUBLISH{FixedHeader: fixed}
	if err := out.Unpack(&buf); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if out.PacketID != 42 {
		t.Errorf("PacketID = %d, want 42", out.PacketID)
	}
}

func TestPUBLISH_Pack_RejectsWildcard(t *testing.T) {
	pub := &PUBLISH{
		FixedHeader: &FixedHeader{Kind: 0x03},
		Message:     &Message{TopicName: "sdcp/#", Content: nil},
	}
	if err := pub.Pack(&bytes.Buffer{}); err == nil {
		t.Error("Pack() should reject a wildcard topic name")
	}
}

func TestPUBLISH_Pack_RejectsEmptyTopic(t *testing.T) {
	pub := &PUBLISH{
		FixedHeader: &FixedHeader{Kind: 0x03},
		Message:     &Message{TopicName: ""},
	}
	if err := pub.Pack(&bytes.Buffer{}); err == nil {
		t.Error("Pack() should reject an empty topic name")
	}
}

func TestPUBLISH_Unpack_RejectsMissingPacketID(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write(s2b("sdcp/status/000001"))
	pub := &PUBLISH{FixedHeader: &FixedHeader{Kind: 0x03, QoS: 1}}
	if err := pub.Unpack(buf); err == nil {
		t.Error("Unpack() should reject a QoS>0 publish missing its packet identifier")
	}
}
