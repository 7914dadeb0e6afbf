// Package syncagent implements the client-side session that keeps a
// reporter's or responder's view current: a live push channel when the
// stream is healthy, fixed-interval polling when it is not.
package syncagent

import (
	"bufio"
	"context"
	"net/http"
	"sync"
	"time"

	"incident-reporter/aggregate"
	"incident-reporter/models"

	"github.com/apex/log"
)

// State is the session's delivery mode.
type State string

const (
	StateConnecting State = "connecting"
	StateLive       State = "live"
	StateDegraded   State = "degraded"
)

// Frequency is the user's notification-frequency preference. Only "off"
// hard-gates the alert sound; the other levels are carried through
// without differentiated behavior.
type Frequency string

const (
	FrequencyOff    Frequency = "off"
	FrequencyLow    Frequency = "low"
	FrequencyNormal Frequency = "normal"
	FrequencyHigh   Frequency = "high"
)

// Preferences are the user's alert settings, read from the preference
// store owned by the mobile shell.
type Preferences struct {
	SoundEnabled bool
	Frequency    Frequency
}

// Snapshot is the session's current view of its collections.
type Snapshot struct {
	Reports       []models.Report
	Incidents     []models.Incident
	Notifications []models.Notification
	Unread        int
}

// Config configures one session.
type Config struct {
	BaseURL  string
	Identity models.Identity

	// ResponderID switches the session to the responder view: reports
	// are fetched by assignment instead of by reporter identity.
	ResponderID string

	PollInterval time.Duration
	Preferences  Preferences

	// OnAlert fires when the unread count increases, subject to the
	// sound preference gates.
	OnAlert func()

	HTTPClient *http.Client
}

// Agent owns one session's state. All previous-observation tracking
// lives here; there are no package-level globals.
type Agent struct {
	cfg    Config
	client *http.Client

	mu         sync.Mutex
	state      State
	snapshot   Snapshot
	lastUnread int

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a sync agent. Call Start to open the push channel.
func New(cfg Config) *Agent {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Agent{
		cfg:    cfg,
		client: client,
		state:  StateConnecting,
		done:   make(chan struct{}),
	}
}

// Start opens the push channel and begins syncing. It returns
// immediately; delivery runs until Close.
func (a *Agent) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.run(ctx)
}

// Close tears the session down: the push channel is closed if open and
// the poll timer stopped. Safe to call once after Start.
func (a *Agent) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	<-a.done
}

// State returns the session's current delivery mode.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Snapshot returns the session's last synced view.
func (a *Agent) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)

	body, err := a.openStream(ctx)
	if err != nil {
		log.Warnf("Push channel failed to open, falling back to polling: %v", err)
		a.setState(StateDegraded)
		a.pollLoop(ctx)
		return
	}
	defer body.Close()

	a.setState(StateLive)
	a.reload(ctx)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := models.DecodeEvent(line)
		if err != nil {
			log.Warnf("Dropping undecodable event frame: %v", err)
			continue
		}

		switch event.Type {
		case models.EventReportNew, models.EventReportUpdate:
			a.reload(ctx)
		case models.EventKeepAlive, models.EventUnknown:
			// Ignored by this subsystem.
		}
	}

	if ctx.Err() != nil {
		return
	}

	// The channel broke mid-stream. The session stays on polling until
	// it is torn down and re-mounted; there is no promotion back to
	// live.
	log.Warn("Push channel dropped, falling back to polling")
	body.Close()
	a.setState(StateDegraded)
	a.pollLoop(ctx)
}

func (a *Agent) pollLoop(ctx context.Context) {
	a.reload(ctx)

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.reload(ctx)
		}
	}
}

// reload re-fetches the session's report and notification collections
// and recomputes the derived view. Both the live path and the poll path
// run through here.
func (a *Agent) reload(ctx context.Context) {
	reports, err := a.fetchReports(ctx)
	if err != nil {
		log.Errorf("Failed to fetch reports: %v", err)
		return
	}

	list, err := a.fetchNotifications(ctx)
	if err != nil {
		log.Errorf("Failed to fetch notifications: %v", err)
		return
	}

	// The unread total comes from its own endpoint; the fetched page is
	// windowed and may hold only a fraction of the unread rows.
	unread, err := a.fetchUnreadCount(ctx)
	if err != nil {
		log.Errorf("Failed to fetch unread count: %v", err)
		return
	}

	a.mu.Lock()
	increased := unread > a.lastUnread
	a.lastUnread = unread
	a.snapshot = Snapshot{
		Reports:       reports,
		Incidents:     aggregate.Group(reports),
		Notifications: list.Notifications,
		Unread:        unread,
	}
	a.mu.Unlock()

	if increased && a.alertAllowed() {
		a.cfg.OnAlert()
	}
}

// alertAllowed applies the sound gates: sound off or frequency "off"
// suppress the alert; low/normal/high all behave alike.
func (a *Agent) alertAllowed() bool {
	if a.cfg.OnAlert == nil {
		return false
	}
	if !a.cfg.Preferences.SoundEnabled {
		return false
	}
	if a.cfg.Preferences.Frequency == FrequencyOff {
		return false
	}
	return true
}

func (a *Agent) setState(state State) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}
