package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: TopicDecisions, payload: []byte(fmt.Sprintf("m%d", i))}
}

func TestRingBufferFIFO(t *testing.T) {
	r := newRingBuffer(4)
	for i := 0; i < 3; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Fatalf("expected 3 buffered, got %d", r.len())
	}

	drained := r.drainAll()
	if len(drained) != 3 {
		t.Fatalf("expected 3 drained, got %d", len(drained))
	}
	for i, m := range drained {
		if string(m.payload) != fmt.Sprintf("m%d", i) {
			t.Errorf("message %d out of order: %s", i, m.payload)
		}
	}
	if r.len() != 0 {
		t.Errorf("expected empty after drain, got %d", r.len())
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	r := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", r.len())
	}

	drained := r.drainAll()
	want := []string{"m2", "m3", "m4"}
	for i, m := range drained {
		if string(m.payload) != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], m.payload)
		}
	}
}

func TestRingBufferDrainEmpty(t *testing.T) {
	r := newRingBuffer(2)
	if drained := r.drainAll(); drained != nil {
		t.Errorf("expected nil drain on empty buffer, got %v", drained)
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	r := newRingBuffer(2)
	r.push(msg(0))
	r.push(msg(1))
	r.push(msg(2)) // overflow
	r.drainAll()

	r.push(msg(9))
	drained := r.drainAll()
	if len(drained) != 1 || string(drained[0].payload) != "m9" {
		t.Errorf("expected single m9 after reuse, got %v", drained)
	}
}
