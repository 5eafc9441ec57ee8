package sdcp

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseDescriptor(t *testing.T) {
	raw := []byte(`{"Id":"abc","Data":{"Attributes":{"Name":"Saturn","MachineName":"Saturn 3","MainboardID":"MB1"},"Status":{"CurrentStatus":0,"PrintInfo":{"Status":0,"CurrentLayer":0,"TotalLayer":0,"Filename":""},"FileTransferInfo":{"Status":0}}}}`)

	d, err := ParseDescriptor(raw, "127.0.0.1:54321")
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	if d.MainboardID != "MB1" {
		t.Errorf("MainboardID = %q, want MB1", d.MainboardID)
	}
	if d.ID != "abc" {
		t.Errorf("ID = %q, want abc", d.ID)
	}
	if d.Status.CurrentStatus != StatusReady {
		t.Errorf("CurrentStatus = %d, want %d", d.Status.CurrentStatus, StatusReady)
	}
	if d.Addr != "127.0.0.1:54321" {
		t.Errorf("Addr = %q", d.Addr)
	}
}

func TestRequestIDShapeAndUniqueness(t *testing.T) {
	a, b := RequestID(), RequestID()
	if a == b {
		t.Fatal("RequestID should not repeat across calls")
	}
	for _, id := range []string{a, b} {
		if len(id) != 32 {
			t.Errorf("RequestID() = %q, want 32 hex chars", id)
		}
		if strings.ContainsAny(id, "-") {
			t.Errorf("RequestID() = %q, should have dashes stripped", id)
		}
	}
}

func TestNewCommandEnvelopeRoundTrip(t *testing.T) {
	env, err := NewCommand("printer-1", "MB1", SetReportPeriod, RequestID(), SetReportPeriodData{TimePeriod: 5000})
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if got.ID != "printer-1" {
		t.Errorf("ID = %q", got.ID)
	}
	if got.Data.Cmd != SetReportPeriod {
		t.Errorf("Cmd = %d, want %d", got.Data.Cmd, SetReportPeriod)
	}

	var payload SetReportPeriodData
	if err := json.Unmarshal(got.Data.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TimePeriod != 5000 {
		t.Errorf("TimePeriod = %d, want 5000", payload.TimePeriod)
	}
}

func TestNewCommandNilPayload(t *testing.T) {
	env, err := NewCommand("printer-1", "MB1", NopZero, RequestID(), nil)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	if env.Data.Data != nil {
		t.Errorf("Data.Data = %s, want nil payload for NopZero", env.Data.Data)
	}
}

func TestParseStatus(t *testing.T) {
	raw := []byte(`{"Id":"abc","Data":{"Status":{"CurrentStatus":1,"PrintInfo":{"Status":2,"CurrentLayer":5,"TotalLayer":100,"Filename":"a.ctb"},"FileTransferInfo":{"Status":0}}}}`)
	status, err := ParseStatus(raw)
	if err != nil {
		t.Fatalf("ParseStatus: %v", err)
	}
	if status.CurrentStatus != StatusBusy {
		t.Errorf("CurrentStatus = %d, want %d", status.CurrentStatus, StatusBusy)
	}
	if status.PrintInfo.CurrentLayer != 5 {
		t.Errorf("CurrentLayer = %d, want 5", status.PrintInfo.CurrentLayer)
	}
}

func TestResponseAck(t *testing.T) {
	raw := []byte(`{"Id":"abc","Data":{"Cmd":0,"Data":{"Ack":0},"MainboardID":"MB1","RequestID":"deadbeef"}}`)
	env, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	var inner struct {
		Ack int `json:"Ack"`
	}
	if err := json.Unmarshal(env.Data.Data, &inner); err != nil {
		t.Fatalf("unmarshal inner: %v", err)
	}
	if inner.Ack != 0 {
		t.Errorf("Ack = %d, want 0", inner.Ack)
	}
}

func TestTopics(t *testing.T) {
	if RequestTopic("MB1") != "/sdcp/request/MB1" {
		t.Errorf("RequestTopic = %q", RequestTopic("MB1"))
	}
	if ResponseTopic("MB1") != "/sdcp/response/MB1" {
		t.Errorf("ResponseTopic = %q", ResponseTopic("MB1"))
	}
	if StatusTopic("MB1") != "/sdcp/status/MB1" {
		t.Errorf("StatusTopic = %q", StatusTopic("MB1"))
	}
	if AttributesTopic("MB1") != "/sdcp/attributes/MB1" {
		t.Errorf("AttributesTopic = %q", AttributesTopic("MB1"))
	}
}
