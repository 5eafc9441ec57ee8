package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// PUBACK acknowledges a QoS 1 PUBLISH. Section 3.4 PUBACK — Publish
// acknowledgement. Carries only a packet identifier in the 3.1.1 subset
// this broker speaks — no reason code, no properties.
type PUBACK struct {
	*FixedHeader

	PacketID uint16
}

func (pkt *PUBACK) Kind() byte { return 0x4 }

func (pkt *PUBACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)
	buf.Write(i2b(pkt.PacketID))
	pkt.FixedHeader.RemainingLength = uint32(buf.Len())

	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *PUBACK) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 2 {
		return ErrMalformedPacket
	}
	pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))
	return nil
}
