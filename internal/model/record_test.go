package model

import (
	"testing"
	"time"
)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("test-source", []byte(`{"message":"hi"}`))

	if rec.Source != "test-source" {
		t.Errorf("expected source 'test-source', got %q", rec.Source)
	}
	if string(rec.Data) != `{"message":"hi"}` {
		t.Errorf("unexpected data %q", string(rec.Data))
	}
	if rec.Metadata == nil {
		t.Error("expected Metadata map to be initialized")
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestRecord_Clone(t *testing.T) {
	original := &Record{
		Timestamp: time.Now(),
		Source:    "original",
		Data:      []byte("payload"),
		Metadata:  map[string]string{"file": "/var/log/app.log"},
	}

	clone := original.Clone()

	if clone.Source != original.Source || !clone.Timestamp.Equal(original.Timestamp) {
		t.Errorf("expected identical header fields, got %+v", clone)
	}
	if string(clone.Data) != string(original.Data) {
		t.Errorf("expected data %q, got %q", original.Data, clone.Data)
	}

	clone.Metadata["new"] = "meta"
	if _, exists := original.Metadata["new"]; exists {
		t.Error("modifying clone.Metadata should not affect original")
	}

	clone.Data[0] = 'X'
	if original.Data[0] == 'X' {
		t.Error("modifying clone.Data should not affect original")
	}
}
