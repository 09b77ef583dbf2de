package recon

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPublishMeasurement(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	p := NewPublisher(client, "lab")

	m := Measurement{
		ID:             0,
		Kind:           KindDistance,
		Label:          "edge",
		Point1ID:       1,
		Point2ID:       2,
		DistanceMeters: 1.5,
		Scaled:         true,
	}
	if err := p.PublishMeasurement("scan-1", m); err != nil {
		t.Fatalf("PublishMeasurement: %v", err)
	}

	msgs := client.GetPublishedMessages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Topic != "lab/scan-1/measurements" {
		t.Errorf("topic = %q, want lab/scan-1/measurements", msgs[0].Topic)
	}
	if !msgs[0].Retain {
		t.Error("measurement events must be retained")
	}

	var decoded Measurement
	if err := json.Unmarshal(msgs[0].Payload, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Label != "edge" || decoded.DistanceMeters != 1.5 {
		t.Errorf("payload mismatch: %+v", decoded)
	}
}

func TestPublishCalibration(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	p := NewPublisher(client, "lab")

	cal := NewCalibrationState("scan-1")
	if err := cal.SetManualScale(0.02, "meters"); err != nil {
		t.Fatalf("SetManualScale: %v", err)
	}
	if err := p.PublishCalibration("scan-1", *cal); err != nil {
		t.Fatalf("PublishCalibration: %v", err)
	}

	msgs := client.GetPublishedMessages()
	if len(msgs) != 1 || msgs[0].Topic != "lab/scan-1/calibration" {
		t.Fatalf("messages = %+v", msgs)
	}
	if !strings.Contains(string(msgs[0].Payload), `"scale_factor": 0.02`) &&
		!strings.Contains(string(msgs[0].Payload), `"scale_factor":0.02`) {
		t.Errorf("payload missing scale factor: %s", msgs[0].Payload)
	}
}

func TestPublishDisconnected(t *testing.T) {
	p := NewPublisher(NewMockClient(), "lab")

	if p.Enabled() {
		t.Error("disconnected client must report disabled")
	}
	if err := p.PublishMeasurement("scan-1", Measurement{}); err == nil {
		t.Error("expected error when not connected")
	}
}

func TestPublishNilClient(t *testing.T) {
	p := NewPublisher(nil, "")

	if p.Enabled() {
		t.Error("nil client must report disabled")
	}
	if err := p.PublishCalibration("scan-1", CalibrationState{}); err == nil {
		t.Error("expected error with nil client")
	}
}

func TestPublishBrokerError(t *testing.T) {
	client := NewMockClient()
	client.SetConnected(true)
	client.SetPublishError(errors.New("broker rejected"))
	p := NewPublisher(client, "lab")

	err := p.PublishMeasurement("scan-1", Measurement{})
	if err == nil || !strings.Contains(err.Error(), "broker rejected") {
		t.Errorf("err = %v, want wrapped broker error", err)
	}
}

func TestPublisherDefaultPrefix(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	client := NewMockClient()
	client.SetConnected(true)
	p := NewPublisher(client, "")

	if err := p.PublishMeasurement("scan-1", Measurement{}); err != nil {
		t.Fatalf("PublishMeasurement: %v", err)
	}
	msgs := client.GetPublishedMessages()
	if !strings.HasPrefix(msgs[0].Topic, "sparsemeasure/") {
		t.Errorf("topic = %q, want the default prefix", msgs[0].Topic)
	}
}
