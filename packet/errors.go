package packet

import "errors"

// ReasonCode mirrors the CONNACK return code / SUBACK return code byte the
// MQTT 3.1.1 spec defines for these packets. Section 3.2.2.3 CONNACK Return
// code, section 3.9.3 SUBACK Payload.
type ReasonCode struct {
	Code   byte
	Reason string
}

func (r ReasonCode) Error() string { return r.Reason }

var (
	// ReasonSuccess is the zero CONNACK/SUBACK return code: connection or
	// subscription accepted.
	ReasonSuccess = ReasonCode{Code: 0x00, Reason: "success"}

	// ErrBadUsernameOrPassword is CONNACK return code 0x04: the server
	// rejected the client's credentials. Unused while §4.2 of the broker
	// skips auth, kept for CONNACK's Pack/Unpack symmetry.
	ErrBadUsernameOrPassword = ReasonCode{Code: 0x04, Reason: "bad username or password"}

	// ErrTopicNameInvalid carries the 3.1.1 SUBACK failure code (0x80).
	// SUBSCRIBE.Unpack returns it, wrapped, for a wildcard topic filter; the
	// connection is then closed and no SUBACK is sent.
	ErrTopicNameInvalid = ReasonCode{Code: 0x80, Reason: "topic name invalid"}
)

// Sentinel errors for the wire codec. These are Go errors, not MQTT reason
// codes — they mean "the bytes on the wire don't parse", which MQTT 3.1.1
// handles by closing the connection rather than replying.
var (
	ErrPacketTooLarge                 = errors.New("mqtt: remaining length exceeds 4-byte encoding (> 268435455)")
	ErrMalformedFlags                 = errors.New("mqtt: reserved fixed-header flag bits must be 0")
	ErrProtocolViolationQosOutOfRange = errors.New("mqtt: qos out of range")
	ErrMalformedConnect               = errors.New("mqtt: malformed CONNECT packet")
	ErrUnsupportedPacketType          = errors.New("mqtt: unsupported packet type for this broker")
	ErrProtocolViolationNoTopic       = errors.New("mqtt: SUBSCRIBE must name at least one topic filter [MQTT-3.8.3-1]")
	ErrMalformedReasonCode            = errors.New("mqtt: SUBACK must carry at least one valid reason code")
)
