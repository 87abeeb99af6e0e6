package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewBaseEvent(t *testing.T) {
	aggregateID := "card-123"

	before := time.Now().UTC()
	event := NewBaseEvent("debitcard.primary_account.associated", aggregateID, "DebitCard")
	after := time.Now().UTC()

	if event.EventID() == "" {
		t.Error("expected non-empty event ID")
	}

	if event.EventType() != "debitcard.primary_account.associated" {
		t.Errorf("expected event type %q, got %q", "debitcard.primary_account.associated", event.EventType())
	}

	if event.AggregateID() != aggregateID {
		t.Errorf("expected aggregate ID %v, got %v", aggregateID, event.AggregateID())
	}

	if event.AggregateType() != "DebitCard" {
		t.Errorf("expected aggregate type %q, got %q", "DebitCard", event.AggregateType())
	}

	if event.OccurredAt().Before(before) || event.OccurredAt().After(after) {
		t.Errorf("expected occurredAt between %v and %v, got %v", before, after, event.OccurredAt())
	}
}

func TestNewBaseEventUniqueIDs(t *testing.T) {
	a := NewBaseEvent("x", "1", "DebitCard")
	b := NewBaseEvent("x", "1", "DebitCard")

	if a.EventID() == b.EventID() {
		t.Errorf("expected distinct event IDs, both were %q", a.EventID())
	}
}

func TestBaseEventImplementsDomainEvent(t *testing.T) {
	var _ DomainEvent = BaseEvent{}
}

func TestEmbeddedBaseEventMarshalsOnlyPayload(t *testing.T) {
	type sample struct {
		BaseEvent
		AccountID string `json:"account_id"`
	}

	payload, err := json.Marshal(sample{
		BaseEvent: NewBaseEvent("x", "1", "DebitCard"),
		AccountID: "acc-1",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(parsed) != 1 || parsed["account_id"] != "acc-1" {
		t.Errorf("unexpected payload: %s", payload)
	}
}
