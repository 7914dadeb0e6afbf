package models

import "testing"

func TestDecodeEvent(t *testing.T) {
	testCases := []struct {
		name       string
		frame      string
		wantType   EventType
		wantReport bool
		wantErr    bool
	}{
		{
			name:       "report new",
			frame:      `{"type":"report:new","report":{"id":"r1","type":"Fire","status":"Pending","responderId":"resp-1"}}`,
			wantType:   EventReportNew,
			wantReport: true,
		},
		{
			name:       "report update",
			frame:      `{"type":"report:update","report":{"id":"r1","status":"Resolved","responderId":"resp-1"}}`,
			wantType:   EventReportUpdate,
			wantReport: true,
		},
		{
			name:     "keep-alive carries no payload",
			frame:    `{"type":"keepalive","timestamp":"2026-03-01T10:00:00Z"}`,
			wantType: EventKeepAlive,
		},
		{
			name:     "foreign event type is ignored",
			frame:    `{"type":"user:login","user":{"id":"u1"}}`,
			wantType: EventUnknown,
		},
		{
			name:    "malformed frame",
			frame:   `{"type":`,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := DecodeEvent([]byte(tc.frame))
			if tc.wantErr {
				if err == nil {
					t.Error("Expected a decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if event.Type != tc.wantType {
				t.Errorf("Expected type %q, got %q", tc.wantType, event.Type)
			}
			if tc.wantReport && (event.Report == nil || event.Report.ID != "r1") {
				t.Errorf("Expected report payload, got %+v", event.Report)
			}
			if !tc.wantReport && event.Report != nil {
				t.Errorf("Expected no report payload, got %+v", event.Report)
			}
		})
	}
}
