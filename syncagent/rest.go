package syncagent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"incident-reporter/models"
)

// openStream opens the long-lived events GET. The returned body is the
// push channel; the caller owns closing it.
func (a *Agent) openStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/events", nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("events endpoint returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (a *Agent) fetchReports(ctx context.Context) ([]models.Report, error) {
	var path string
	switch {
	case a.cfg.ResponderID != "":
		path = "/reports/responder/" + url.PathEscape(a.cfg.ResponderID)
	case a.cfg.Identity.IsDevice():
		path = "/reports/device/" + url.PathEscape(a.cfg.Identity.DeviceID)
	default:
		path = "/reports/user/" + url.PathEscape(a.cfg.Identity.UserID)
	}

	var reports []models.Report
	if err := a.getJSON(ctx, path, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (a *Agent) fetchNotifications(ctx context.Context) (*models.NotificationList, error) {
	query := a.identityQuery()
	query.Set("limit", "50")

	var list models.NotificationList
	if err := a.getJSON(ctx, "/notifications?"+query.Encode(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// fetchUnreadCount asks the server for the recipient's total unread
// count. The notification fetch is windowed, so the count cannot be
// derived from the page.
func (a *Agent) fetchUnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := a.getJSON(ctx, "/notifications/unread-count?"+a.identityQuery().Encode(), &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (a *Agent) identityQuery() url.Values {
	query := url.Values{}
	if a.cfg.ResponderID != "" {
		query.Set("userId", a.cfg.ResponderID)
	} else if a.cfg.Identity.IsDevice() {
		query.Set("deviceId", a.cfg.Identity.DeviceID)
	} else {
		query.Set("userId", a.cfg.Identity.UserID)
	}
	return query
}

func (a *Agent) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
