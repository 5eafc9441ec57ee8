package packet

import (
	"bytes"
	"io"
)

// DISCONNECT notifies the broker the client is closing the connection
// cleanly. Section 3.14 DISCONNECT — Disconnect notification.
//
// The 3.1.1 wire form this broker speaks carries no reason code and no
// payload at all: remaining length is always 0. A printer never sends the
// v5.0 reason-code/properties variant, so this type doesn't model one.
type DISCONNECT struct {
	*FixedHeader
}

func (pkt *DISCONNECT) Kind() byte { return 0xE }

func (pkt *DISCONNECT) String() string { return "[0xE]DISCONNECT" }

func (pkt *DISCONNECT) Pack(w io.Writer) error {
	pkt.FixedHeader.RemainingLength = 0
	return pkt.FixedHeader.Pack(w)
}

func (pkt *DISCONNECT) Unpack(*bytes.Buffer) error { return nil }
