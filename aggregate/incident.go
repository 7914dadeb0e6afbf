// Package aggregate folds per-responder report rows back into logical
// incidents for display. A submission fanned out to N responders creates
// N report rows; all of them share one fingerprint and collapse into one
// incident with a unioned responder list and an escalated status.
package aggregate

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"

	"incident-reporter/models"
)

// Group folds report rows into incidents keyed by submission
// fingerprint. The fold is commutative: input order does not affect the
// result. Nothing is cached; callers recompute on every load.
func Group(reports []models.Report) []models.Incident {
	byFingerprint := make(map[string]*models.Incident)

	for _, report := range reports {
		key := Fingerprint(report)

		incident, ok := byFingerprint[key]
		if !ok {
			incident = &models.Incident{
				ID:          incidentID(key),
				Type:        report.Type,
				Description: report.Description,
				Location:    report.Location,
				Photos:      report.Photos,
				UserID:      report.UserID,
				Anonymous:   report.Anonymous,
				Status:      report.Status,
				CreatedAt:   report.CreatedAt,
			}
			byFingerprint[key] = incident
		}

		if !containsString(incident.Responders, report.ResponderID) {
			incident.Responders = append(incident.Responders, report.ResponderID)
		}

		if models.StatusPriority(report.Status) > models.StatusPriority(incident.Status) {
			incident.Status = report.Status
		}

		// Earliest row anchors the incident's creation time.
		if report.CreatedAt.Before(incident.CreatedAt) {
			incident.CreatedAt = report.CreatedAt
		}
	}

	incidents := make([]models.Incident, 0, len(byFingerprint))
	for _, incident := range byFingerprint {
		sort.Strings(incident.Responders)
		incidents = append(incidents, *incident)
	}

	sort.Slice(incidents, func(i, j int) bool {
		if incidents[i].CreatedAt.Equal(incidents[j].CreatedAt) {
			return incidents[i].ID < incidents[j].ID
		}
		return incidents[i].CreatedAt.After(incidents[j].CreatedAt)
	})

	return incidents
}

// Fingerprint derives the grouping key of one report row: reporter
// identity, type, description, location, and the photo set as a sorted
// string.
func Fingerprint(report models.Report) string {
	photos := append([]string(nil), report.Photos...)
	sort.Strings(photos)

	return strings.Join([]string{
		reporterKey(report),
		report.Type,
		report.Description,
		report.Location,
		strings.Join(photos, ","),
	}, "\x1f")
}

func reporterKey(report models.Report) string {
	switch {
	case report.UserID != "":
		return "user:" + report.UserID
	case report.DeviceID != "":
		return "device:" + report.DeviceID
	default:
		// Anonymous rows read back from the server carry no device id.
		return "anonymous"
	}
}

func incidentID(fingerprint string) string {
	sum := sha1.Sum([]byte(fingerprint))
	return fmt.Sprintf("%x", sum[:6])
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
