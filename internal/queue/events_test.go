package queue

import (
	"testing"
)

func TestBroker(t *testing.T) {
	var counts []int
	broker := NewBroker(func(n int) { counts = append(counts, n) })

	first, unsubscribeFirst := broker.Subscribe(1)
	second, unsubscribeSecond := broker.Subscribe(1)

	if got := broker.Publish(Event{Type: EventCreated, PatientID: "A"}); got != 2 {
		t.Errorf("Expected 2 deliveries, got %d", got)
	}

	// first is full now, so the next event only reaches second once drained
	<-second
	if got := broker.Publish(Event{Type: EventUpdated, PatientID: "A"}); got != 1 {
		t.Errorf("Expected 1 delivery with a full subscriber, got %d", got)
	}

	ev := <-first
	if ev.Type != EventCreated || ev.PatientID != "A" {
		t.Errorf("Unexpected event %+v", ev)
	}
	if ev := <-second; ev.Type != EventUpdated {
		t.Errorf("Expected updated event, got %+v", ev)
	}

	unsubscribeFirst()
	unsubscribeFirst()
	if _, open := <-first; open {
		t.Error("Expected channel to be closed after unsubscribe")
	}
	if broker.Subscribers() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", broker.Subscribers())
	}

	unsubscribeSecond()
	expected := []int{1, 2, 1, 0}
	if len(counts) != len(expected) {
		t.Fatalf("Expected counts %v, got %v", expected, counts)
	}
	for i := range expected {
		if counts[i] != expected[i] {
			t.Errorf("Expected counts %v, got %v", expected, counts)
			break
		}
	}
}
