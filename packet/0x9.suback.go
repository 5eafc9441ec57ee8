package packet

import (
	"bytes"
	"encoding/binary"
	"io"
)

// SUBACK acknowledges a SUBSCRIBE. Section 3.9 SUBACK — Subscribe
// acknowledgement.
//
// The payload carries one reason code per topic filter in the matching
// SUBSCRIBE, in the same order [MQTT-3.9.3-1]. This broker's subset never
// sends the 0x80 failure code back over the wire — a rejected subscription
// is a protocol violation that closes the connection instead — so
// ReasonCode here is always one of 0x00/0x01/0x02.
type SUBACK struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode []ReasonCode
}

func (pkt *SUBACK) Kind() byte { return 0x9 }

func (pkt *SUBACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if len(pkt.ReasonCode) == 0 {
		return ErrMalformedReasonCode
	}
	buf.Write(i2b(pkt.PacketID))
	for _, reason := range pkt.ReasonCode {
		buf.WriteByte(reason.Code)
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *SUBACK) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 2 {
		return ErrMalformedPacket
	}
	pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))

	for buf.Len() != 0 {
		reason := ReasonCode{Code: buf.Next(1)[0]}
		if reason.Code > 0x02 {
			return ErrMalformedReasonCode
		}
		pkt.ReasonCode = append(pkt.ReasonCode, reason)
	}
	if len(pkt.ReasonCode) == 0 {
		return ErrMalformedReasonCode
	}
	return nil
}
