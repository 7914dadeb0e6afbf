package fanout

import (
	"context"
	"time"

	"incident-reporter/models"

	"github.com/apex/log"
)

// Store is the notification-side persistence the engine writes through.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error)
	AdminIDs(ctx context.Context) ([]string, error)
}

// Broadcaster delivers one event to every open push channel. The
// broadcast-to-all hub implements it today; per-recipient routing could
// be swapped in behind the same boundary.
type Broadcaster interface {
	BroadcastEvent(event models.Event)
}

// Publisher mirrors lifecycle events to an external broker. Optional.
type Publisher interface {
	Publish(message interface{}) error
}

// Engine turns report lifecycle events into per-recipient notification
// rows and a push broadcast. Notification and mirror failures are logged
// and swallowed: the triggering report write has already committed and
// must never be failed retroactively.
type Engine struct {
	store       Store
	broadcaster Broadcaster
	publisher   Publisher
}

// NewEngine creates a fan-out engine. publisher may be nil.
func NewEngine(store Store, broadcaster Broadcaster, publisher Publisher) *Engine {
	return &Engine{
		store:       store,
		broadcaster: broadcaster,
		publisher:   publisher,
	}
}

// ReportCreated fans a new report out: one notification to the assigned
// responder, one to every admin, then a report:new broadcast.
func (e *Engine) ReportCreated(ctx context.Context, report *models.Report) {
	e.createNotification(ctx, &models.Notification{
		UserID:   report.ResponderID,
		Title:    "New report assigned to you",
		ReportID: report.ID,
		Kind:     models.NotificationNew,
	})

	admins, err := e.store.AdminIDs(ctx)
	if err != nil {
		log.Errorf("Failed to list admin accounts for fan-out: %v", err)
	}
	for _, adminID := range admins {
		e.createNotification(ctx, &models.Notification{
			UserID:   adminID,
			Title:    "New report submitted",
			ReportID: report.ID,
			Kind:     models.NotificationNew,
		})
	}

	e.emit(models.Event{
		Type:      models.EventReportNew,
		Report:    report,
		Timestamp: time.Now().UTC(),
	})
}

// ReportUpdated fans a status change out: exactly one notification to
// the reporter identity, none to the responder, then a report:update
// broadcast.
func (e *Engine) ReportUpdated(ctx context.Context, report *models.Report) {
	notification := &models.Notification{
		Title:    UpdateTitle(report.Status),
		ReportID: report.ID,
		Kind:     models.NotificationUpdate,
	}
	if report.Anonymous {
		notification.DeviceID = report.DeviceID
	} else {
		notification.UserID = report.UserID
	}
	e.createNotification(ctx, notification)

	e.emit(models.Event{
		Type:      models.EventReportUpdate,
		Report:    report,
		Timestamp: time.Now().UTC(),
	})
}

// UpdateTitle derives the reporter-facing title for a status change.
func UpdateTitle(status models.Status) string {
	switch status {
	case models.StatusInProgress:
		return "Your report is now in progress (taken)"
	case models.StatusResolved:
		return "Your report has been completed"
	default:
		return "Your report was updated"
	}
}

func (e *Engine) createNotification(ctx context.Context, n *models.Notification) {
	if _, err := e.store.CreateNotification(ctx, n); err != nil {
		log.Errorf("Failed to write notification for report %s: %v", n.ReportID, err)
	}
}

func (e *Engine) emit(event models.Event) {
	e.broadcaster.BroadcastEvent(event)

	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(event); err != nil {
		log.Errorf("Failed to mirror %s event to broker: %v", event.Type, err)
	}
}
