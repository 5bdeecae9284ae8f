package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kestrel-lb/kestrel/internal/config"
)

func TestLatencySupervisorOnlyStartsForLeastLatencyPolicy(t *testing.T) {
	b := NewBackend("http://127.0.0.1:1", 1)
	s := StartLatencySupervisor([]*Backend{b}, config.RoundRobin, nil)
	if s != nil {
		t.Fatal("expected nil supervisor when policy is not LeastLatency")
	}
	s.Stop() // must not panic on a nil receiver
}

func TestLatencySupervisorMeasuresRoundTrip(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	b := NewBackend(upstream.URL, 1)
	s := StartLatencySupervisor([]*Backend{b}, config.LeastLatency, nil)
	defer s.Stop()

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		if b.Latency() != unmeasuredLatency {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("latency was never recorded")
}

func TestLatencySupervisorMarksUnreachableOnFailure(t *testing.T) {
	b := NewBackend("http://127.0.0.1:1", 1)
	b.SetLatency(5 * time.Millisecond) // seed a non-sentinel value first

	s := StartLatencySupervisor([]*Backend{b}, config.LeastLatency, nil)
	defer s.Stop()

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		if b.Latency() == unmeasuredLatency {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("backend never reverted to the unreachable sentinel after a failed probe")
}
