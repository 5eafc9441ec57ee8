package packet

import (
	"bytes"
	"fmt"
	"io"
)

// CONNACK acknowledges a CONNECT. Section 3.2 CONNACK — Acknowledge
// connection request.
//
// This broker's CONNACK payload is always the fixed bytes `00 00` — no
// session resumption, no non-zero return codes — so SessionPresent and
// ConnectReturnCode exist for wire fidelity but this broker always packs
// the success case.
type CONNACK struct {
	*FixedHeader

	SessionPresent    uint8
	ConnectReturnCode ReasonCode
}

func (pkt *CONNACK) Kind() byte { return 0x2 }

func (pkt *CONNACK) String() string {
	return fmt.Sprintf("[0x2]ConnectReturnCode=%d", pkt.ConnectReturnCode.Code)
}

func (pkt *CONNACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte(pkt.SessionPresent)
	buf.WriteByte(pkt.ConnectReturnCode.Code)

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *CONNACK) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 2 {
		return ErrMalformedPacket
	}
	pkt.SessionPresent = buf.Next(1)[0]
	pkt.ConnectReturnCode = ReasonCode{Code: buf.Next(1)[0]}
	return nil
}
