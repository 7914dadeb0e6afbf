package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"incident-reporter/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
	d    *Database
)

func setUp() {
	db, mock, _ = sqlmock.New()
	d = NewDatabaseFromConn(db)
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

var reportColumns = []string{
	"id", "type", "description", "location", "latitude", "longitude",
	"photos", "identity", "responder_id", "status", "created_at",
}

func TestCreateReportValidation(t *testing.T) {
	it(func() {
		testCases := []struct {
			name      string
			req       models.CreateReportRequest
			wantField string
		}{
			{
				name:      "missing type",
				req:       models.CreateReportRequest{Description: "d", Location: "l", ResponderID: "r", UserID: "u"},
				wantField: "type",
			},
			{
				name:      "missing description",
				req:       models.CreateReportRequest{Type: "Fire", Location: "l", ResponderID: "r", UserID: "u"},
				wantField: "description",
			},
			{
				name:      "missing location",
				req:       models.CreateReportRequest{Type: "Fire", Description: "d", ResponderID: "r", UserID: "u"},
				wantField: "location",
			},
			{
				name:      "missing responder",
				req:       models.CreateReportRequest{Type: "Fire", Description: "d", Location: "l", UserID: "u"},
				wantField: "responderId",
			},
			{
				name:      "no identity",
				req:       models.CreateReportRequest{Type: "Fire", Description: "d", Location: "l", ResponderID: "r"},
				wantField: "userId|deviceId",
			},
			{
				name:      "both identities",
				req:       models.CreateReportRequest{Type: "Fire", Description: "d", Location: "l", ResponderID: "r", UserID: "u", DeviceID: "dev"},
				wantField: "userId|deviceId",
			},
		}

		for _, tc := range testCases {
			_, err := d.CreateReport(context.Background(), &tc.req)
			ve, ok := models.AsValidationError(err)
			if !ok {
				t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
				continue
			}
			if ve.Field != tc.wantField {
				t.Errorf("%s: expected field %q, got %q", tc.name, tc.wantField, ve.Field)
			}
		}
	})
}

func TestCreateReportRegistered(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT INTO user_reports").
			WithArgs(sqlmock.AnyArg(), "Fire", "Smoke everywhere", "12.5, 44.25",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "user-1", "resp-1",
				models.StatusPending, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		report, err := d.CreateReport(context.Background(), &models.CreateReportRequest{
			Type:        "Fire",
			Description: "Smoke everywhere",
			Location:    "12.5, 44.25",
			ResponderID: "resp-1",
			UserID:      "user-1",
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if report.ID == "" {
			t.Error("Expected a generated report id")
		}
		if report.Status != models.StatusPending {
			t.Errorf("Expected status %q, got %q", models.StatusPending, report.Status)
		}
		if report.Anonymous {
			t.Error("Registered report must not be anonymous")
		}
		if report.Latitude == nil || *report.Latitude != 12.5 {
			t.Errorf("Expected parsed latitude 12.5, got %v", report.Latitude)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestCreateReportAnonymous(t *testing.T) {
	it(func() {
		mock.ExpectExec("INSERT INTO device_reports").
			WithArgs(sqlmock.AnyArg(), "Flood", "Water rising", "Main street",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "device-9", "resp-1",
				models.StatusPending, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		report, err := d.CreateReport(context.Background(), &models.CreateReportRequest{
			Type:        "Flood",
			Description: "Water rising",
			Location:    "Main street",
			ResponderID: "resp-1",
			DeviceID:    "device-9",
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if !report.Anonymous {
			t.Error("Device report must be anonymous")
		}
		if report.Latitude != nil {
			t.Errorf("Free-text location must not parse coordinates, got %v", report.Latitude)
		}

		// The device identity never serializes.
		data, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("Failed to marshal report: %v", err)
		}
		if strings.Contains(string(data), "device-9") {
			t.Errorf("Serialized report leaks the device id: %s", data)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestAdvanceStatusAcrossSubStores(t *testing.T) {
	it(func() {
		// Not in the registered sub-store...
		mock.ExpectQuery("SELECT (.+) FROM user_reports WHERE id").
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows(reportColumns))

		// ...but present in the anonymous one.
		mock.ExpectQuery("SELECT (.+) FROM device_reports WHERE id").
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows(reportColumns).
				AddRow("r1", "Fire", "desc", "loc", nil, nil, nil, "device-9", "resp-1", "Pending", time.Now()))

		mock.ExpectExec("UPDATE device_reports SET status").
			WithArgs(models.StatusInProgress, "r1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		report, previous, err := d.AdvanceStatus(context.Background(), "r1", models.StatusInProgress)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if previous != models.StatusPending {
			t.Errorf("Expected previous status %q, got %q", models.StatusPending, previous)
		}
		if report.Status != models.StatusInProgress {
			t.Errorf("Expected status %q, got %q", models.StatusInProgress, report.Status)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestAdvanceStatusNotFound(t *testing.T) {
	it(func() {
		mock.ExpectQuery("SELECT (.+) FROM user_reports WHERE id").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(reportColumns))
		mock.ExpectQuery("SELECT (.+) FROM device_reports WHERE id").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(reportColumns))

		_, _, err := d.AdvanceStatus(context.Background(), "missing", models.StatusResolved)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestAdvanceStatusRejectsUnknownStatus(t *testing.T) {
	it(func() {
		_, _, err := d.AdvanceStatus(context.Background(), "r1", models.Status("Closed"))
		ve, ok := models.AsValidationError(err)
		if !ok || ve.Field != "status" {
			t.Errorf("Expected status ValidationError, got %v", err)
		}
	})
}

func TestListByResponderMergesSubStores(t *testing.T) {
	it(func() {
		older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		newer := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT (.+) FROM user_reports WHERE responder_id").
			WithArgs("resp-1").
			WillReturnRows(sqlmock.NewRows(reportColumns).
				AddRow("r1", "Fire", "desc", "loc", nil, nil, nil, "user-1", "resp-1", "Pending", older))
		mock.ExpectQuery("SELECT (.+) FROM device_reports WHERE responder_id").
			WithArgs("resp-1").
			WillReturnRows(sqlmock.NewRows(reportColumns).
				AddRow("r2", "Flood", "desc", "loc", nil, nil, nil, "device-9", "resp-1", "Pending", newer))

		reports, err := d.ListByResponder(context.Background(), "resp-1")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if len(reports) != 2 {
			t.Fatalf("Expected 2 reports, got %d", len(reports))
		}
		if reports[0].ID != "r2" {
			t.Errorf("Expected newest report first, got %q", reports[0].ID)
		}
		if reports[1].UserID != "user-1" {
			t.Errorf("Expected registered report second, got %+v", reports[1])
		}
	})
}
