package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"incident-reporter/models"

	"github.com/google/uuid"
)

// CreateReport validates and persists a new report into the sub-store
// matching its reporter identity, with status Pending and a server
// timestamp. One row is created per submission; a multi-responder
// submission calls this once per responder.
func (d *Database) CreateReport(ctx context.Context, req *models.CreateReportRequest) (*models.Report, error) {
	switch {
	case req.Type == "":
		return nil, models.NewValidationError("type")
	case req.Description == "":
		return nil, models.NewValidationError("description")
	case req.Location == "":
		return nil, models.NewValidationError("location")
	case req.ResponderID == "":
		return nil, models.NewValidationError("responderId")
	}

	identity := models.Identity{UserID: req.UserID, DeviceID: req.DeviceID}
	if !identity.Valid() {
		return nil, models.NewValidationError("userId|deviceId")
	}

	lat, lng := ParseLatLng(req.Location)

	report := &models.Report{
		ID:          uuid.New().String(),
		Type:        req.Type,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    lat,
		Longitude:   lng,
		Photos:      req.Photos,
		UserID:      req.UserID,
		DeviceID:    req.DeviceID,
		Anonymous:   identity.IsDevice(),
		ResponderID: req.ResponderID,
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	photos, err := marshalPhotos(report.Photos)
	if err != nil {
		return nil, fmt.Errorf("failed to encode photos: %w", err)
	}

	if identity.IsDevice() {
		_, err = d.db.ExecContext(ctx, `INSERT INTO device_reports
			(id, type, description, location, latitude, longitude, photos, device_id, responder_id, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID, report.Type, report.Description, report.Location,
			report.Latitude, report.Longitude, photos, report.DeviceID,
			report.ResponderID, report.Status, report.CreatedAt)
	} else {
		_, err = d.db.ExecContext(ctx, `INSERT INTO user_reports
			(id, type, description, location, latitude, longitude, photos, user_id, responder_id, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.ID, report.Type, report.Description, report.Location,
			report.Latitude, report.Longitude, photos, report.UserID,
			report.ResponderID, report.Status, report.CreatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	return report, nil
}

// AdvanceStatus moves a report to the given status and returns the
// updated row plus the status it held before. The row is located across
// both sub-stores by id; an unknown id yields ErrNotFound.
func (d *Database) AdvanceStatus(ctx context.Context, id string, next models.Status) (*models.Report, models.Status, error) {
	if !models.ValidStatus(next) {
		return nil, "", models.NewValidationError("status")
	}

	report, err := d.GetReport(ctx, id)
	if err != nil {
		return nil, "", err
	}
	previous := report.Status

	table := "user_reports"
	if report.Anonymous {
		table = "device_reports"
	}

	if _, err := d.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET status = ? WHERE id = ?", table), next, id); err != nil {
		return nil, "", fmt.Errorf("failed to update report status: %w", err)
	}

	report.Status = next
	return report, previous, nil
}

// GetReport looks a report up by id across both sub-stores.
func (d *Database) GetReport(ctx context.Context, id string) (*models.Report, error) {
	report, err := d.queryReports(ctx, false, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(report) == 1 {
		return &report[0], nil
	}

	report, err = d.queryReports(ctx, true, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(report) == 1 {
		return &report[0], nil
	}

	return nil, models.ErrNotFound
}

// ListByReporter returns the reports submitted under one reporter
// identity, newest first.
func (d *Database) ListByReporter(ctx context.Context, identity models.Identity) ([]models.Report, error) {
	if identity.IsDevice() {
		return d.queryReports(ctx, true, "WHERE device_id = ? ORDER BY created_at DESC", identity.DeviceID)
	}
	return d.queryReports(ctx, false, "WHERE user_id = ? ORDER BY created_at DESC", identity.UserID)
}

// ListByResponder returns the reports assigned to a responder from both
// sub-stores, newest first.
func (d *Database) ListByResponder(ctx context.Context, responderID string) ([]models.Report, error) {
	registered, err := d.queryReports(ctx, false, "WHERE responder_id = ?", responderID)
	if err != nil {
		return nil, err
	}
	anonymous, err := d.queryReports(ctx, true, "WHERE responder_id = ?", responderID)
	if err != nil {
		return nil, err
	}
	return mergeReports(registered, anonymous), nil
}

// ListAllReports returns every report from both sub-stores, newest first.
func (d *Database) ListAllReports(ctx context.Context) ([]models.Report, error) {
	registered, err := d.queryReports(ctx, false, "")
	if err != nil {
		return nil, err
	}
	anonymous, err := d.queryReports(ctx, true, "")
	if err != nil {
		return nil, err
	}
	return mergeReports(registered, anonymous), nil
}

func (d *Database) queryReports(ctx context.Context, anonymous bool, clause string, args ...interface{}) ([]models.Report, error) {
	identityCol, table := "user_id", "user_reports"
	if anonymous {
		identityCol, table = "device_id", "device_reports"
	}

	query := fmt.Sprintf(`SELECT id, type, description, location, latitude, longitude, photos, %s, responder_id, status, created_at FROM %s %s`,
		identityCol, table, clause)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var report models.Report
		var identity string
		var photos sql.NullString
		err := rows.Scan(
			&report.ID,
			&report.Type,
			&report.Description,
			&report.Location,
			&report.Latitude,
			&report.Longitude,
			&photos,
			&identity,
			&report.ResponderID,
			&report.Status,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		if anonymous {
			report.DeviceID = identity
			report.Anonymous = true
		} else {
			report.UserID = identity
		}

		if photos.Valid && photos.String != "" {
			if err := json.Unmarshal([]byte(photos.String), &report.Photos); err != nil {
				return nil, fmt.Errorf("failed to decode photos: %w", err)
			}
		}

		reports = append(reports, report)
	}

	return reports, rows.Err()
}

func mergeReports(a, b []models.Report) []models.Report {
	merged := append(a, b...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

func marshalPhotos(photos []string) (interface{}, error) {
	if len(photos) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
