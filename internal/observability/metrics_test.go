package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/chat", "POST", 200, time.Millisecond)
	m.RecordRequest("/chat", "POST", 200, time.Millisecond)
	m.RecordError("/chat", "POST", "VALIDATION_FAILED")
	m.RecordMessage("other", 10*time.Millisecond)
	m.RecordMessage("ticket_info", 30*time.Millisecond)
	m.RecordStageFailure("resolve")
	m.RecordFallback("compose")

	snap := m.Snapshot()
	if snap.Requests["/chat|POST|200"] != 2 {
		t.Errorf("requests = %v", snap.Requests)
	}
	if snap.Errors["/chat|POST|VALIDATION_FAILED"] != 1 {
		t.Errorf("errors = %v", snap.Errors)
	}
	if snap.Intents["other"] != 1 || snap.Intents["ticket_info"] != 1 {
		t.Errorf("intents = %v", snap.Intents)
	}
	if snap.Messages != 2 || snap.AvgMessageMS != 20 {
		t.Errorf("messages = %d avg = %v", snap.Messages, snap.AvgMessageMS)
	}
	if snap.StageFailures["resolve"] != 1 || snap.Fallbacks["compose"] != 1 {
		t.Errorf("failures = %v fallbacks = %v", snap.StageFailures, snap.Fallbacks)
	}

	snap.Intents["other"] = 99
	if m.Snapshot().Intents["other"] != 1 {
		t.Error("snapshot must not alias internal maps")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordMessage("other", time.Second)
	m.RecordFallback("x")
	if snap := m.Snapshot(); snap.Messages != 0 {
		t.Fatal("nil metrics should report nothing")
	}
}
