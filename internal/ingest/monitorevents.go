package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docsentry/internal/classify"
	"docsentry/internal/store"
)

// MonitorEvent is a raw in-client observation (clipboard attempt, focus
// change, devtools detection) reported by viewer-side instrumentation.
type MonitorEvent struct {
	FileID    string          `json:"fileId"`
	SessionID string          `json:"sessionId"`
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData"`
	Timestamp string          `json:"timestamp"`
}

var highThreatEvents = map[string]struct{}{
	"CLIPBOARD_COPY_ATTEMPT": {},
	"CLIPBOARD_CUT_ATTEMPT":  {},
	"SUSPICIOUS_KEYPRESS":    {},
	"FILE_DRAG_ATTEMPT":      {},
	"PRINT_ATTEMPT":          {},
	"SAVE_ATTEMPT":           {},
}

var mediumThreatEvents = map[string]struct{}{
	"WINDOW_FOCUS_LOST":        {},
	"VISIBILITY_CHANGE":        {},
	"FILE_DROP_DETECTED":       {},
	"DEVELOPER_TOOLS_DETECTED": {},
}

// AnalyzeThreat maps a client event type to a threat level. Unknown events
// that still carry attempt or block wording rate MEDIUM.
func AnalyzeThreat(eventType string) classify.Severity {
	if _, ok := highThreatEvents[eventType]; ok {
		return classify.SeverityHigh
	}
	if _, ok := mediumThreatEvents[eventType]; ok {
		return classify.SeverityMedium
	}
	if strings.Contains(eventType, "ATTEMPT") || strings.Contains(eventType, "BLOCKED") {
		return classify.SeverityMedium
	}
	return classify.SeverityLow
}

// HandleMonitorEvent records one client observation and returns the assessed
// threat level. HIGH-rated events additionally produce a threat-detected
// marker activity so escalations stand out in the history.
func (s *Service) HandleMonitorEvent(body []byte) (classify.Severity, error) {
	var event MonitorEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return classify.Suppressed, fmt.Errorf("decode monitor event: %w", err)
	}
	if event.EventType == "" {
		return classify.Suppressed, fmt.Errorf("monitor event missing eventType")
	}

	level := AnalyzeThreat(event.EventType)
	when := parseTimestamp(event.Timestamp)

	extra := map[string]any{"threat_level": string(level)}
	if len(event.EventData) > 0 {
		extra["event_data"] = json.RawMessage(event.EventData)
	}

	err := s.recorder.RecordActivity(&store.Activity{
		Timestamp: when,
		SessionID: event.SessionID,
		Kind:      "CLIENT_MONITOR_" + event.EventType,
		FileName:  event.FileID,
		Extra:     extra,
	})
	if err != nil {
		return level, err
	}

	if level == classify.SeverityHigh {
		err := s.recorder.RecordActivity(&store.Activity{
			Timestamp: time.Now(),
			SessionID: event.SessionID,
			Kind:      "SECURITY_THREAT_DETECTED",
			FileName:  event.FileID,
			Extra: map[string]any{
				"trigger_event": event.EventType,
				"threat_level":  string(level),
			},
		})
		if err != nil {
			s.log.Warn("threat marker record failed", "error", err)
		}
		s.log.Warn("high threat client event",
			"event_type", event.EventType,
			"session_id", event.SessionID,
			"file", event.FileID)
	}
	return level, nil
}
