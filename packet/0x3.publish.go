package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// PUBLISH carries an application message. Section 3.3 PUBLISH — Publish
// message.
//
// This broker only ever exchanges QoS 0 and QoS 1 messages — the printer
// never negotiates QoS 2; its command/status channel is a plain
// request/response exchange layered over PUBLISH, not MQTT's own QoS 2
// handshake. The packet identifier is therefore present only when QoS > 0
// [MQTT-2.3.1-5].
type PUBLISH struct {
	*FixedHeader

	// PacketID identifies a QoS > 0 publish so its PUBACK can be matched up.
	// Absent (zero) for QoS 0.
	PacketID uint16

	Message *Message
}

func (pkt *PUBLISH) Kind() byte { return 0x3 }

func (pkt *PUBLISH) String() string {
	return fmt.Sprintf("[0x3]PUBLISH %s", pkt.Message)
}

func (pkt *PUBLISH) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if pkt.Message == nil || pkt.Message.TopicName == "" {
		return fmt.Errorf("%w: topic name cannot be empty [MQTT-3.3.2-1]", ErrMalformedPacket)
	}
	if strings.ContainsAny(pkt.Message.TopicName, "+# ") {
		return fmt.Errorf("%w: topic name cannot contain wildcards or spaces [MQTT-3.3.2-2]", ErrMalformedPacket)
	}

	buf.Write(s2b(pkt.Message.TopicName))
	if pkt.FixedHeader.QoS > 0 {
		if pkt.PacketID == 0 {
			return fmt.Errorf("%w: packet identifier must be > 0 for QoS > 0 [MQTT-2.3.1-1]", ErrMalformedPacket)
		}
		buf.Write(i2b(pkt.PacketID))
	}
	buf.Write(pkt.Message.Content)

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *PUBLISH) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < 2 {
		return ErrMalformedPacket
	}
	topicLength := int(binary.BigEndian.Uint16(buf.Next(2)))
	if topicLength == 0 || buf.Len() < topicLength {
		return fmt.Errorf("%w: topic name cannot be empty [MQTT-3.3.2-1]", ErrMalformedPacket)
	}

	pkt.Message = &Message{TopicName: string(buf.Next(topicLength))}
	if strings.ContainsAny(pkt.Message.TopicName, "+# ") {
		return fmt.Errorf("%w: topic name cannot contain wildcards or spaces [MQTT-3.3.2-2]", ErrMalformedPacket)
	}

	if pkt.FixedHeader.QoS > 0 {
		if buf.Len() < 2 {
			return fmt.Errorf("%w: missing packet identifier", ErrMalformedPacket)
		}
		pkt.PacketID = binary.BigEndian.Uint16(buf.Next(2))
		if pkt.PacketID == 0 {
			return fmt.Errorf("%w: packet identifier must be > 0 for QoS > 0 [MQTT-2.3.1-1]", ErrMalformedPacket)
		}
	}

	// Copy out of the pooled buffer: buf is returned to the pool and reused
	// as soon as Unpack returns.
	pkt.Message.Content = append([]byte(nil), buf.Bytes()...)
	return nil
}

// Message is the topic/payload pair carried by a PUBLISH. Section 3.3.3
// PUBLISH Payload.
type Message struct {
	TopicName string
	Content   []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("%s # %s", m.TopicName, m.Content)
}
