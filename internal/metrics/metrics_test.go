package metrics

import "testing"

func TestSink_Counters(t *testing.T) {
	s := NewSink()

	s.IncProcessed()
	s.IncProcessed()
	s.IncIgnored()

	snap := s.Snapshot()
	if snap.MessagesProcessed != 2 {
		t.Errorf("MessagesProcessed = %d, want 2", snap.MessagesProcessed)
	}
	if snap.MessagesIgnored != 1 {
		t.Errorf("MessagesIgnored = %d, want 1", snap.MessagesIgnored)
	}
}

func TestSink_ConnectionStatus(t *testing.T) {
	s := NewSink()

	if s.Snapshot().Connected {
		t.Error("new sink reports connected")
	}

	s.SetConnected(true)
	if !s.Snapshot().Connected {
		t.Error("Connected = false after SetConnected(true)")
	}

	s.SetConnected(false)
	if s.Snapshot().Connected {
		t.Error("Connected = true after SetConnected(false)")
	}
}

func TestSink_ActiveSubscriptions(t *testing.T) {
	s := NewSink()
	s.SetActiveSubscriptions(42)
	if got := s.Snapshot().ActiveSubscriptions; got != 42 {
		t.Errorf("ActiveSubscriptions = %d, want 42", got)
	}
}

func TestSink_NilSafe(t *testing.T) {
	var s *Sink

	// Must not panic; components treat the sink as optional.
	s.SetConnected(true)
	s.MarkMessage()
	s.IncProcessed()
	s.IncIgnored()
	s.SetActiveSubscriptions(1)

	snap := s.Snapshot()
	if snap.MessagesProcessed != 0 {
		t.Errorf("nil sink Snapshot().MessagesProcessed = %d, want 0", snap.MessagesProcessed)
	}
}
