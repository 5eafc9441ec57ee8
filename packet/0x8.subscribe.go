package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// SUBSCRIBE requests one or more topic subscriptions. Section 3.8 SUBSCRIBE
// — Subscribe to topics.
//
// Fixed-header flags are pinned to DUP=0, QoS=1, RETAIN=0 [MQTT-3.8.1-1];
// FixedHeader.Unpack already rejects anything else. Wildcards are never
// accepted here — this broker matches subscriptions by exact topic string
// only, so a filter containing '+' or '#' is a protocol violation rather
// than something to expand later.
type SUBSCRIBE struct {
	*FixedHeader

	PacketID uint16

	// Subscriptions holds every topic filter requested. The printer only
	// ever subscribes to its own request topic, but the wire format allows
	// a list and this broker parses all of it.
	Subscriptions []Subscription
}

func (pkt *SUBSCRIBE) Kind() byte { return 0x8 }

func (pkt *SUBSCRIBE) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(pkt.PacketID))
	for _, sub := range pkt.Subscriptions {
		if sub.TopicFilter == "" {
			return ErrProtocolViolationNoTopic
		}
		buf.Write(s2b(sub.TopicFilter))
		buf.WriteByte(sub.MaximumQoS)
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *SUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 2 {
		return ErrMalformedPacket
	}
	pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))

	for buf.Len() != 0 {
		var sub Subscription
		sub.TopicFilter = decodeUTF8[string](buf)
		if buf.Len() < 1 {
			return ErrMalformedPacket
		}
		options := buf.Next(1)[0]
		sub.MaximumQoS = options & 0b00000011
		if sub.MaximumQoS > 0x02 {
			return ErrProtocolViolationQosOutOfRange
		}
		if options&0b11111100 != 0 {
			return ErrMalformedFlags
		}
		if strings.ContainsAny(sub.TopicFilter, "+#") {
			return fmt.Errorf("%w: wildcard subscriptions are not supported", ErrTopicNameInvalid)
		}
		pkt.Subscriptions = append(pkt.Subscriptions, sub)
	}
	if len(pkt.Subscriptions) == 0 {
		return ErrProtocolViolationNoTopic
	}
	return nil
}

// Subscription is one topic filter/QoS pair from a SUBSCRIBE payload.
// Section 3.8.3 SUBSCRIBE Payload.
type Subscription struct {
	TopicFilter string
	MaximumQoS  uint8
}

func (s Subscription) String() string {
	return fmt.Sprintf("%s@%d", s.TopicFilter, s.MaximumQoS)
}
