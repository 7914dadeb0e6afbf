package models

import (
	"time"
)

// Status is the lifecycle state of a report. The domain intends
// single-step advance Pending -> In-progress -> Resolved; the API only
// enforces enum membership.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In-progress"
	StatusResolved   Status = "Resolved"
)

// ValidStatus reports whether s is one of the three lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// StatusPriority ranks statuses for display escalation. An aggregate of
// report rows shows the highest-priority status across the group.
func StatusPriority(s Status) int {
	switch s {
	case StatusPending:
		return 3
	case StatusInProgress:
		return 2
	case StatusResolved:
		return 1
	}
	return 0
}

// Report represents one (incident, responder) pairing. A report carries
// exactly one reporter identity: UserID for registered reporters or
// DeviceID for anonymous ones. DeviceID is never serialized; anonymous
// rows only expose the Anonymous marker to callers.
type Report struct {
	ID          string    `json:"id" db:"id"`
	Type        string    `json:"type" db:"type"`
	Description string    `json:"description" db:"description"`
	Location    string    `json:"location" db:"location"`
	Latitude    *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64  `json:"longitude,omitempty" db:"longitude"`
	Photos      []string  `json:"photos,omitempty" db:"photos"`
	UserID      string    `json:"userId,omitempty" db:"user_id"`
	DeviceID    string    `json:"-" db:"device_id"`
	Anonymous   bool      `json:"anonymous,omitempty"`
	ResponderID string    `json:"responderId" db:"responder_id"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// NotificationKind distinguishes creation events from status updates.
type NotificationKind string

const (
	NotificationNew    NotificationKind = "new"
	NotificationUpdate NotificationKind = "update"
)

// Notification is one row per (recipient, event). Recipient identity is
// UserID for accounts (responders, admins, registered reporters) or
// DeviceID for anonymous reporters.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"userId,omitempty" db:"user_id"`
	DeviceID  string           `json:"deviceId,omitempty" db:"device_id"`
	Title     string           `json:"title" db:"title"`
	ReportID  string           `json:"reportId" db:"report_id"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	Read      bool             `json:"read" db:"read"`
	ReadAt    *time.Time       `json:"readAt,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// Identity addresses a reporter or notification recipient: exactly one
// of UserID / DeviceID is set.
type Identity struct {
	UserID   string
	DeviceID string
}

// Valid reports whether exactly one identity field is set.
func (i Identity) Valid() bool {
	return (i.UserID != "") != (i.DeviceID != "")
}

// IsDevice reports whether the identity is an anonymous device.
func (i Identity) IsDevice() bool {
	return i.DeviceID != ""
}

// Role is an account role.
type Role string

const (
	RoleUser      Role = "user"
	RoleResponder Role = "responder"
	RoleAdmin     Role = "admin"
)

// Account is the minimal account shape this subsystem reads. Password
// and session handling live in an external service.
type Account struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  Role   `json:"role" db:"role"`
}

// Incident is a derived, client-only fold of report rows sharing one
// submission fingerprint. Never persisted; rebuilt on every load.
type Incident struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Photos      []string  `json:"photos,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Anonymous   bool      `json:"anonymous,omitempty"`
	Responders  []string  `json:"responders"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateReportRequest is the POST /reports payload.
type CreateReportRequest struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Photos      []string `json:"photos"`
	ResponderID string   `json:"responderId"`
	UserID      string   `json:"userId"`
	DeviceID    string   `json:"deviceId"`
}

// UpdateStatusRequest is the PATCH /reports/:id/status payload.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// MarkReadRequest is the PATCH /notifications/:id/read payload.
type MarkReadRequest struct {
	Read bool `json:"read"`
}

// Pagination describes a windowed notification listing.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Skip    int  `json:"skip"`
	HasMore bool `json:"hasMore"`
}

// NotificationList is the GET /notifications response.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	Pagination    Pagination     `json:"pagination"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Timestamp        string `json:"timestamp"`
	ConnectedClients int    `json:"connected_clients"`
	EventsBroadcast  int    `json:"events_broadcast"`
}
