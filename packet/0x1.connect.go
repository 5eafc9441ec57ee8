package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// NAME is the fixed 6-byte protocol name field CONNECT must carry:
// a 2-byte length prefix followed by "MQTT". Section 3.1.2.1 Protocol Name.
var NAME = []byte{0x00, 0x04, 'M', 'Q', 'T', 'T'}

var (
	ErrMalformedProtocolName    = errors.New("mqtt: malformed protocol name")
	ErrMalformedProtocolVersion = errors.New("mqtt: unsupported protocol version")
	ErrMalformedPacket          = errors.New("mqtt: malformed packet")
)

// ConnectFlags is the single connect-flags byte of the CONNECT variable
// header. Section 3.1.2.2 Connect Flags.
type ConnectFlags uint8

func (f ConnectFlags) Reserved() uint8     { return uint8(f) & 0x01 }
func (f ConnectFlags) CleanSession() bool  { return uint8(f)&0x02 == 0x02 }
func (f ConnectFlags) WillFlag() bool      { return uint8(f)&0x04 == 0x04 }
func (f ConnectFlags) WillQoS() uint8      { return (uint8(f) & 0x18) >> 3 }
func (f ConnectFlags) WillRetain() bool    { return uint8(f)&0x20 == 0x20 }
func (f ConnectFlags) PasswordFlag() bool  { return uint8(f)&0x40 == 0x40 }
func (f ConnectFlags) UserNameFlag() bool  { return uint8(f)&0x80 == 0x80 }

// CONNECT is a client's request to open a session. Section 3.1 CONNECT —
// Client requests a connection to a Server.
//
// This broker only accepts MQTT 3.1.1 (protocol level 4): the printer never
// negotiates 3.1 or 5.0, and the broker never dials out, so this type never
// packs a CONNECT of its own — only Unpack is implemented.
type CONNECT struct {
	*FixedHeader

	ConnectFlags ConnectFlags
	KeepAlive    uint16

	// ClientID is the printer's mainboard ID — it doubles as the session
	// key and the suffix of every per-printer topic.
	ClientID string

	WillTopic   string
	WillPayload []byte
	Username    string
	Password    string
}

func (pkt *CONNECT) Kind() byte { return 0x1 }

func (pkt *CONNECT) String() string { return "[0x1]CONNECT" }

func (pkt *CONNECT) Pack(io.Writer) error {
	return fmt.Errorf("mqtt: CONNECT is client-to-server only, this broker never packs one")
}

func (pkt *CONNECT) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 10 {
		return ErrMalformedPacket
	}

	name := buf.Next(6)
	if !bytes.Equal(name, NAME) {
		return fmt.Errorf("%w: got %v", ErrMalformedProtocolName, name)
	}

	pkt.Version = buf.Next(1)[0]
	if pkt.Version != VERSION311 {
		return fmt.Errorf("%w: %d", ErrMalformedProtocolVersion, pkt.Version)
	}

	pkt.ConnectFlags = ConnectFlags(buf.Next(1)[0])
	// The reserved flag bit must be 0 [MQTT-3.1.2-3].
	if pkt.ConnectFlags.Reserved() != 0 {
		return ErrMalformedPacket
	}
	if pkt.ConnectFlags.WillQoS() > 2 {
		return ErrProtocolViolationQosOutOfRange
	}

	pkt.KeepAlive = binary.BigEndian.Uint16(buf.Next(2))

	pkt.ClientID = decodeUTF8[string](buf)

	if pkt.ConnectFlags.WillFlag() {
		pkt.WillTopic = decodeUTF8[string](buf)
		pkt.WillPayload = decodeUTF8[[]byte](buf)
		if pkt.WillTopic == "" {
			return ErrMalformedPacket
		}
	}
	if pkt.ConnectFlags.UserNameFlag() {
		pkt.Username = decodeUTF8[string](buf)
	} else if pkt.ConnectFlags.PasswordFlag() {
		// Password flag requires username flag [MQTT-3.1.2-22].
		return ErrMalformedPacket
	}
	if pkt.ConnectFlags.PasswordFlag() {
		pkt.Password = decodeUTF8[string](buf)
	}
	return nil
}
