package sdcp

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Command is the closed set of command codes this controller speaks.
type Command int

const (
	NopZero         Command = 0
	NopOne          Command = 1
	Disconnect      Command = 64
	StartPrinting   Command = 128
	UploadFile      Command = 256
	SetReportPeriod Command = 512
)

// StartPrintingData is the Data payload for a StartPrinting command.
type StartPrintingData struct {
	Filename   string `json:"Filename"`
	StartLayer int    `json:"StartLayer"`
}

// UploadFileData is the Data payload for an UploadFile command. URL
// carries the literal token `${ipaddr}`, which the printer substitutes on
// its own side — the controller must never resolve it.
type UploadFileData struct {
	Check      int    `json:"Check"`
	CleanCache int    `json:"CleanCache"`
	Compress   int    `json:"Compress"`
	FileSize   int64  `json:"FileSize"`
	Filename   string `json:"Filename"`
	MD5        string `json:"MD5"`
	URL        string `json:"URL"`
}

// SetReportPeriodData is the Data payload for a SetReportPeriod command.
type SetReportPeriodData struct {
	TimePeriod int `json:"TimePeriod"`
}

// commandData is the inner `Data` object of a command/response envelope.
type commandData struct {
	Cmd         Command         `json:"Cmd"`
	Data        json.RawMessage `json:"Data"`
	From        int             `json:"From"`
	MainboardID string          `json:"MainboardID"`
	RequestID   string          `json:"RequestID"`
	TimeStamp   int64           `json:"TimeStamp"`
}

// Envelope is the `{Id, Data: {...}}` shape every command and every
// response shares.
type Envelope struct {
	ID   string      `json:"Id"`
	Data commandData `json:"Data"`
}

// RequestID mints a fresh 128-bit correlation id as 32 lowercase hex
// characters — uniqueness within a session is all that's required, not
// cryptographic randomness, but uuid's generator already gives us that for
// free.
func RequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewCommand builds the envelope for a command to submit. payload must be
// one of the *Data types above, or nil for NopZero/NopOne/Disconnect.
func NewCommand(printerID, mainboardID string, cmd Command, requestID string, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		raw = b
	}
	return Envelope{
		ID: printerID,
		Data: commandData{
			Cmd:         cmd,
			Data:        raw,
			From:        0,
			MainboardID: mainboardID,
			RequestID:   requestID,
			TimeStamp:   time.Now().UnixMilli(),
		},
	}, nil
}

// Marshal serializes the envelope to its wire JSON form.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// RequestID reports the envelope's correlation id.
func (e Envelope) RequestID() string { return e.Data.RequestID }

// Ack reports a response's acknowledgement code, nested inside Data.Data
// per the wire format; zero means success. Commands whose payload carries
// no Ack field (a bare NOP, say) report zero.
func (e Envelope) Ack() int {
	if len(e.Data.Data) == 0 {
		return 0
	}
	var inner struct {
		Ack int `json:"Ack"`
	}
	_ = json.Unmarshal(e.Data.Data, &inner)
	return inner.Ack
}

// ParseEnvelope decodes one command or response envelope.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(raw, &e)
	return e, err
}

// ParseStatus decodes an `/sdcp/status/<mainboard>` push. The wire shape
// for a status push reuses the descriptor body's `Data.Status` field.
func ParseStatus(raw []byte) (StatusSnapshot, error) {
	var w descriptorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return StatusSnapshot{}, err
	}
	return w.Data.Status, nil
}
