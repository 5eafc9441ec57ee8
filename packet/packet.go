package packet

import (
	"bytes"
	"io"
)

// Packet is the common interface implemented by every MQTT control packet
// this broker understands.
//
// Reference: MQTT v3.1.1 (OASIS Standard, 29 October 2014), section 2.1
// Structure of an MQTT Control Packet. Every packet has a fixed header;
// some carry a variable header and payload too.
type Packet interface {
	// Kind returns the packet type from the fixed header, bits 7-4 of byte 1.
	Kind() byte

	// Unpack parses the variable header and payload out of buf. The fixed
	// header has already been consumed by the time Unpack is called.
	Unpack(*bytes.Buffer) error

	// Pack serializes the fixed header, variable header and payload to w.
	Pack(io.Writer) error
}

// Unpack reads one MQTT control packet from r.
//
// Only the seven packet types of this broker's subset are recognized:
// CONNECT, CONNACK, PUBLISH, PUBACK, SUBSCRIBE, SUBACK, DISCONNECT. Anything
// else is a protocol error — this broker never negotiates MQTT 5 or QoS 2.
func Unpack(version byte, r io.Reader) (Packet, error) {
	pkt, fixed := Packet(nil), &FixedHeader{Version: version}
	if err := fixed.Unpack(r); err != nil {
		return &RESERVED{FixedHeader: fixed}, err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	lr := io.LimitReader(r, int64(fixed.RemainingLength))
	if _, err := buf.ReadFrom(lr); err != nil {
		return pkt, err
	}

	switch fixed.Kind {
	case 0x1: // CONNECT — client requests a connection, section 3.1
		pkt = &CONNECT{FixedHeader: fixed}
	case 0x2: // CONNACK — connection acknowledged, section 3.2
		pkt = &CONNACK{FixedHeader: fixed}
	case 0x3: // PUBLISH — application message, section 3.3
		pkt = &PUBLISH{FixedHeader: fixed}
	case 0x4: // PUBACK — QoS 1 publish acknowledged, section 3.4
		pkt = &PUBACK{FixedHeader: fixed}
	case 0x8: // SUBSCRIBE — subscribe request, section 3.8
		pkt = &SUBSCRIBE{FixedHeader: fixed}
	case 0x9: // SUBACK — subscribe acknowledged, section 3.9
		pkt = &SUBACK{FixedHeader: fixed}
	case 0xE: // DISCONNECT — client is disconnecting, section 3.14
		pkt = &DISCONNECT{FixedHeader: fixed}
	default:
		return pkt, ErrUnsupportedPacketType
	}
	return pkt, pkt.Unpack(buf)
}
