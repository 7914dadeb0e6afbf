package syncagent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"incident-reporter/models"
)

// testBackend serves the REST collections the agent syncs, with
// mutable state, plus an events endpoint driven by the test.
type testBackend struct {
	mu            sync.Mutex
	reports       []models.Report
	notifications []models.Notification

	events      chan models.Event
	streamFails bool
	streamEnds  bool
}

func newTestBackend() *testBackend {
	return &testBackend{events: make(chan models.Event, 8)}
}

func (b *testBackend) setData(reports []models.Report, notifications []models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = reports
	b.notifications = notifications
}

func (b *testBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if b.streamFails {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		if b.streamEnds {
			return
		}
		for {
			select {
			case event := <-b.events:
				data, _ := json.Marshal(event)
				w.Write(append(data, '\n'))
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	mux.HandleFunc("/reports/user/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(b.reports)
	})

	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		page := b.notifications
		if len(page) > 50 {
			page = page[:50]
		}
		json.NewEncoder(w).Encode(models.NotificationList{
			Notifications: page,
			Pagination: models.Pagination{
				Total:   len(b.notifications),
				Limit:   50,
				HasMore: len(b.notifications) > len(page),
			},
		})
	})

	mux.HandleFunc("/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		unread := 0
		for _, n := range b.notifications {
			if !n.Read {
				unread++
			}
		}
		json.NewEncoder(w).Encode(map[string]int{"count": unread})
	})

	return httptest.NewServer(mux)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func soundOn() Preferences {
	return Preferences{SoundEnabled: true, Frequency: FrequencyNormal}
}

func TestAgentLiveSync(t *testing.T) {
	backend := newTestBackend()
	backend.setData(nil, []models.Notification{{ID: "n1", UserID: "u1", Read: false}})
	srv := backend.server(t)
	defer srv.Close()

	alerts := make(chan struct{}, 8)
	agent := New(Config{
		BaseURL:      srv.URL,
		Identity:     models.Identity{UserID: "u1"},
		PollInterval: time.Hour, // polling must not be the path under test
		Preferences:  soundOn(),
		OnAlert:      func() { alerts <- struct{}{} },
	})
	agent.Start()
	defer agent.Close()

	waitFor(t, "live state", func() bool { return agent.State() == StateLive })
	waitFor(t, "initial reload", func() bool { return agent.Snapshot().Unread == 1 })

	// Unread went 0 -> 1, so the alert fires once.
	select {
	case <-alerts:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an alert after unread count increase")
	}

	// Another client's submission shows up via the push event.
	report := models.Report{ID: "r1", UserID: "u1", ResponderID: "resp-1", Status: models.StatusPending}
	backend.setData([]models.Report{report},
		[]models.Notification{
			{ID: "n1", UserID: "u1", Read: false},
			{ID: "n2", UserID: "u1", Read: false},
		})
	backend.events <- models.Event{Type: models.EventReportNew, Report: &report, Timestamp: time.Now()}

	waitFor(t, "event-driven reload", func() bool {
		snap := agent.Snapshot()
		return len(snap.Reports) == 1 && snap.Unread == 2
	})

	if incidents := agent.Snapshot().Incidents; len(incidents) != 1 {
		t.Errorf("Expected 1 incident in snapshot, got %d", len(incidents))
	}
}

func TestAgentFallsBackToPollingWhenStreamFailsToOpen(t *testing.T) {
	backend := newTestBackend()
	backend.streamFails = true
	srv := backend.server(t)
	defer srv.Close()

	agent := New(Config{
		BaseURL:      srv.URL,
		Identity:     models.Identity{UserID: "u1"},
		PollInterval: 30 * time.Millisecond,
		Preferences:  soundOn(),
	})
	agent.Start()
	defer agent.Close()

	waitFor(t, "degraded state", func() bool { return agent.State() == StateDegraded })

	// A change made while degraded is reflected within one poll interval.
	backend.setData([]models.Report{{ID: "r1", UserID: "u1", Status: models.StatusInProgress}}, nil)
	waitFor(t, "poll reload", func() bool { return len(agent.Snapshot().Reports) == 1 })
}

func TestAgentUnreadCountSpansPages(t *testing.T) {
	backend := newTestBackend()
	backend.streamFails = true

	// More unread notifications than one fetch window holds.
	notifications := make([]models.Notification, 120)
	for i := range notifications {
		notifications[i] = models.Notification{ID: fmt.Sprintf("n%d", i), UserID: "u1"}
	}
	backend.setData(nil, notifications)

	srv := backend.server(t)
	defer srv.Close()

	agent := New(Config{
		BaseURL:      srv.URL,
		Identity:     models.Identity{UserID: "u1"},
		PollInterval: 30 * time.Millisecond,
		Preferences:  soundOn(),
	})
	agent.Start()
	defer agent.Close()

	waitFor(t, "full unread count", func() bool { return agent.Snapshot().Unread == 120 })

	if page := agent.Snapshot().Notifications; len(page) != 50 {
		t.Errorf("Expected one 50-item notification page, got %d", len(page))
	}
}

func TestAgentDegradesOnStreamDrop(t *testing.T) {
	backend := newTestBackend()
	backend.streamEnds = true
	srv := backend.server(t)
	defer srv.Close()

	agent := New(Config{
		BaseURL:      srv.URL,
		Identity:     models.Identity{UserID: "u1"},
		PollInterval: 30 * time.Millisecond,
		Preferences:  soundOn(),
	})
	agent.Start()
	defer agent.Close()

	// The channel closes immediately after opening; the session stays
	// on polling with no promotion back to live.
	waitFor(t, "degraded state", func() bool { return agent.State() == StateDegraded })

	backend.setData(nil, []models.Notification{{ID: "n1", UserID: "u1", Read: false}})
	waitFor(t, "poll reload", func() bool { return agent.Snapshot().Unread == 1 })

	if agent.State() != StateDegraded {
		t.Errorf("Expected session to remain degraded, got %q", agent.State())
	}
}

func TestAlertGates(t *testing.T) {
	testCases := []struct {
		name  string
		prefs Preferences
		want  bool
	}{
		{"sound off", Preferences{SoundEnabled: false, Frequency: FrequencyNormal}, false},
		{"frequency off", Preferences{SoundEnabled: true, Frequency: FrequencyOff}, false},
		{"low is not gated", Preferences{SoundEnabled: true, Frequency: FrequencyLow}, true},
		{"high is not gated", Preferences{SoundEnabled: true, Frequency: FrequencyHigh}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newTestBackend()
			backend.streamFails = true
			backend.setData(nil, []models.Notification{{ID: "n1", UserID: "u1", Read: false}})
			srv := backend.server(t)
			defer srv.Close()

			alerts := make(chan struct{}, 8)
			agent := New(Config{
				BaseURL:      srv.URL,
				Identity:     models.Identity{UserID: "u1"},
				PollInterval: 30 * time.Millisecond,
				Preferences:  tc.prefs,
				OnAlert:      func() { alerts <- struct{}{} },
			})
			agent.Start()
			defer agent.Close()

			waitFor(t, "reload", func() bool { return agent.Snapshot().Unread == 1 })

			select {
			case <-alerts:
				if !tc.want {
					t.Error("Alert fired despite being gated off")
				}
			case <-time.After(200 * time.Millisecond):
				if tc.want {
					t.Error("Expected an alert")
				}
			}
		})
	}
}
