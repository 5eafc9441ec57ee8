package packet

import (
	"bytes"
	"testing"
)

func buildCONNECTPayload(clientID string, flags ConnectFlags, keepAlive uint16) []byte {
	buf := &bytes.Buffer{}
	buf.Write(NAME)
	buf.WriteByte(VERSION311)
	buf.WriteByte(byte(flags))
	buf.Write(i2b(keepAlive))
	buf.Write(encodeUTF8(clientID))
	return buf.Bytes()
}

func TestCONNECT_Kind(t *testing.T) {
	connect := &CONNECT{FixedHeader: &FixedHeader{Kind: 0x01}}
	if connect.Kind() != 0x01 {
		t.Errorf("CONNECT.Kind() = %d, want 0x01", connect.Kind())
	}
}

func TestCONNECT_Unpack(t *testing.T) {
	payload := buildCONNECTPayload("printer-01", ConnectFlags(0x02), 60)
	connect := &CONNECT{FixedHeader: &FixedHeader{}}

	if err := connect.Unpack(bytes.NewBuffer(payload)); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if connect.ClientID != "printer-01" {
		t.Errorf("ClientID = %q, want %q", connect.ClientID, "printer-01")
	}
	if connect.KeepAlive != 60 {
		t.Errorf("KeepAlive = %d, want 60", connect.KeepAlive)
	}
	if !connect.ConnectFlags.CleanSession() {
		t.Error("CleanSession() should be true")
	}
}

func TestCONNECT_Unpack_BadProtocolName(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write([]byte{0x00, 0x04, 'M', 'Q', 'T', 'X'})
	buf.WriteByte(VERSION311)
	buf.WriteByte(0x02)
	buf.Write(i2b(60))
	buf.Write(encodeUTF8("x"))

	connect := &CONNECT{FixedHeader: &FixedHeader{}}
	if err := connect.Unpack(buf); err == nil {
		t.Error("Unpack() should reject a malformed protocol name")
	}
}

func TestCONNECT_Unpack_BadProtocolVersion(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write(NAME)
	buf.WriteByte(0x03)
	buf.WriteByte(0x02)
	buf.Write(i2b(60))
	buf.Write(encodeUTF8("x"))

	connect := &CONNECT{FixedHeader: &FixedHeader{}}
	if err := connect.Unpack(buf); err == nil {
		t.Error("Unpack() should reject anything but protocol level 4")
	}
}

func TestCONNECT_Unpack_Will(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.Write(NAME)
	buf.WriteByte(VERSION311)
	buf.WriteByte(byte(0x02 | 0x04)) // clean session + will flag
	buf.Write(i2b(30))
	buf.Write(encodeUTF8("printer-02"))
	buf.Write(encodeUTF8("status/printer-02/offline"))
	buf.Write(encodeUTF8([]byte("disconnected")))

	connect := &CONNECT{FixedHeader: &FixedHeader{}}
	if err := connect.Unpack(buf); err != nil {
		t.Fatalf("Unpack() failed: %v", err)
	}
	if connect.WillTopic != "status/printer-02/offline" {
		t.Errorf("WillTopic = %q", connect.WillTopic)
	}
	if string(connect.WillPayload) != "disconnected" {
		t.Errorf("WillPayload = %q", connect.WillPayload)
	}
}

func TestCONNECT_Unpack_Short(t *testing.T) {
	connect := &CONNECT{FixedHeader: &FixedHeader{}}
	if err := connect.Unpack(bytes.NewBuffer([]byte{0x00, 0x04})); err == nil {
		t.Error("Unpack() should reject a truncated CONNECT")
	}
}

func TestCONNECT_Pack_Rejected(t *testing.T) {
	connect := &CONNECT{FixedHeader: &FixedHeader{}}
	if err := connect.Pack(&bytes.Buffer{}); err == nil {
		t.Error("Pack() should always fail: this broker never sends CONNECT")
	}
}
