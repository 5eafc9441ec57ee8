// Package sdcp models the JSON wire shapes the printer speaks on top of
// MQTT: the descriptor a discovery probe returns, the status snapshot it
// pushes unsolicited, and the command/response envelope every submitted
// command and its reply share.
package sdcp

import "encoding/json"

// CurrentStatus values. Only READY/BUSY are documented; anything else is
// surfaced to callers as its raw integer rather than guessed at.
const (
	StatusReady = 0
	StatusBusy  = 1
)

// PrintInfo.Status values actually documented. Gaps in the numbering are
// the printer's, not ours — see PrintInfo.Status's doc comment.
const (
	PrintIdle       = 0
	PrintExposure   = 2
	PrintRetracting = 3
	PrintLowering   = 4
	PrintComplete   = 16
)

// FileTransferInfo.Status values.
const (
	TransferNone  = 0
	TransferDone  = 2
	TransferError = 3
)

// PrintInfo describes the active (or most recent) print job.
type PrintInfo struct {
	// Status is one of the Print* constants above, or an opaque value the
	// printer hasn't documented — never reject an unrecognized one.
	Status       int    `json:"Status"`
	CurrentLayer int    `json:"CurrentLayer"`
	TotalLayer   int    `json:"TotalLayer"`
	Filename     string `json:"Filename"`
}

// FileTransferInfo describes the in-flight (or most recent) upload.
type FileTransferInfo struct {
	Status         int    `json:"Status"`
	DownloadOffset int64  `json:"DownloadOffset"`
	FileTotalSize  int64  `json:"FileTotalSize"`
	Filename       string `json:"Filename"`
}

// StatusSnapshot is the printer's self-reported state, carried both in a
// discovery descriptor and in every unsolicited status push.
type StatusSnapshot struct {
	CurrentStatus    int              `json:"CurrentStatus"`
	PrintInfo        PrintInfo        `json:"PrintInfo"`
	FileTransferInfo FileTransferInfo `json:"FileTransferInfo"`
}

// Attributes is the capability/identity dump a descriptor and an
// `/sdcp/attributes/<mainboard>` push both carry. The core only reads
// Name/MachineName/MainboardID out of it; everything else is ignored by
// design — there is nothing here a session decision depends on.
type Attributes struct {
	Name        string `json:"Name"`
	MachineName string `json:"MachineName"`
	MainboardID string `json:"MainboardID"`
}

// descriptorBody is the `Data` object of a discovery response datagram.
type descriptorBody struct {
	Attributes Attributes     `json:"Attributes"`
	Status     StatusSnapshot `json:"Status"`
}

// Descriptor is the immutable record captured at discovery: everything a
// session needs to know about a printer before it has connected to one.
type Descriptor struct {
	// ID is the correlation identifier the printer expects echoed back as
	// `Id` in every command envelope addressed to it.
	ID string

	Name        string
	MachineName string
	MainboardID string
	Status      StatusSnapshot

	// Addr is the "ip:port" the descriptor was observed from.
	Addr string
}

type descriptorWire struct {
	ID   string         `json:"Id"`
	Data descriptorBody `json:"Data"`
}

// ParseDescriptor decodes one discovery response datagram.
func ParseDescriptor(raw []byte, addr string) (Descriptor, error) {
	var w descriptorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		ID:          w.ID,
		Name:        w.Data.Attributes.Name,
		MachineName: w.Data.Attributes.MachineName,
		MainboardID: w.Data.Attributes.MainboardID,
		Status:      w.Data.Status,
		Addr:        addr,
	}, nil
}

// Describe renders a short human-readable identification string for log
// lines.
func (d Descriptor) Describe() string {
	if d.Name == "" {
		return d.MainboardID
	}
	return d.Name + " (" + d.MainboardID + ")"
}
