// Package ingest is the inbound event surface: it accepts classified
// incidents and raw monitoring events from external producers and persists
// them through the incident sink.
//
// Two payload shapes arrive on the same endpoint. System monitors send a
// structured JSON observation; the protected artifact's embedded
// instrumentation sends its legacy pipe-delimited KEY:value string wrapped
// in a one-field JSON object. Both normalize into the same incident record
// before storage.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"docsentry/internal/audit"
	"docsentry/internal/classify"
	"docsentry/internal/logging"
	"docsentry/internal/observe"
	"docsentry/internal/store"
)

// observationSchema validates the structured system-observation shape before
// any field is trusted.
const observationSchema = `{
	"type": "object",
	"required": ["eventType"],
	"properties": {
		"eventType":       {"type": "string", "minLength": 1},
		"operation":       {"type": "string"},
		"originalFile":    {"type": "string"},
		"sourcePath":      {"type": "string"},
		"destinationPath": {"type": "string"},
		"processName":     {"type": "string"},
		"contentHash":     {"type": "string"},
		"detectedBy":      {"type": "string"},
		"severity":        {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]},
		"timestamp":       {"type": "string"}
	}
}`

var compiledObservationSchema = jsonschema.MustCompileString("observation.schema.json", observationSchema)

// Observation is the structured inbound shape.
type Observation struct {
	EventType       string `json:"eventType"`
	Operation       string `json:"operation"`
	OriginalFile    string `json:"originalFile"`
	SourcePath      string `json:"sourcePath"`
	DestinationPath string `json:"destinationPath"`
	ProcessName     string `json:"processName"`
	ContentHash     string `json:"contentHash"`
	DetectedBy      string `json:"detectedBy"`
	Severity        string `json:"severity"`
	Timestamp       string `json:"timestamp"`
}

// legacyEnvelope is how the embedded instrumentation wraps its pipe payload.
type legacyEnvelope struct {
	LogData string `json:"logData"`
}

// Service normalizes inbound payloads and records them.
type Service struct {
	recorder   *audit.Recorder
	classifier *classify.Classifier
	log        *logging.Logger
}

// New builds a Service.
func New(rec *audit.Recorder, cls *classify.Classifier, log *logging.Logger) *Service {
	return &Service{recorder: rec, classifier: cls, log: log.WithComponent("ingest")}
}

// HandleIncident ingests one incident payload, returning the stored record.
func (s *Service) HandleIncident(body []byte) (*store.Incident, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("decode incident payload: %w", err)
	}

	if _, ok := probe["logData"]; ok {
		return s.handleLegacy(body)
	}
	return s.handleStructured(body)
}

func (s *Service) handleStructured(body []byte) (*store.Incident, error) {
	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return nil, fmt.Errorf("decode observation: %w", err)
	}
	if err := compiledObservationSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("observation payload rejected: %w", err)
	}

	var obs Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, fmt.Errorf("decode observation: %w", err)
	}

	operation := obs.Operation
	if operation == "" {
		operation = obs.EventType
	}
	detectedBy := obs.DetectedBy
	if detectedBy == "" {
		detectedBy = observe.DetectorIngest
	}

	// A producer that supplied no valid severity gets one derived the same
	// way internal observations do.
	severity := classify.Severity(obs.Severity)
	if !classify.Valid(severity) {
		severity = s.classifier.Classify(observe.Kind(operation), obs.DestinationPath)
	}

	incident := &store.Incident{
		OperationType:   operation,
		SourcePath:      obs.SourcePath,
		DestinationPath: obs.DestinationPath,
		ContentHash:     obs.ContentHash,
		DetectedBy:      detectedBy,
		ProcessName:     obs.ProcessName,
		Severity:        string(severity),
		Timestamp:       parseTimestamp(obs.Timestamp),
	}
	if err := s.recorder.RecordIncident(incident); err != nil {
		return nil, err
	}
	return incident, nil
}

func (s *Service) handleLegacy(body []byte) (*store.Incident, error) {
	var env legacyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode legacy envelope: %w", err)
	}

	fields := ParsePipePayload(env.LogData)
	incidentType := fields["INCIDENT"]
	if incidentType == "" {
		return nil, fmt.Errorf("legacy payload missing INCIDENT field")
	}

	// The embedded instrumentation only fires on deliberate tampering with
	// a protected artifact, so every legacy incident is HIGH.
	incident := &store.Incident{
		OperationType: incidentType,
		SourcePath:    fields["FILE"],
		DetectedBy:    "EMBEDDED_INSTRUMENTATION",
		Severity:      string(classify.SeverityHigh),
		Timestamp:     parseTimestamp(fields["TIMESTAMP"]),
	}
	if err := s.recorder.RecordIncident(incident); err != nil {
		return nil, err
	}

	// The tracking and session identifiers only exist in the legacy shape;
	// keep them queryable through the activity mirror.
	err := s.recorder.RecordActivity(&store.Activity{
		Timestamp: incident.Timestamp,
		SessionID: fields["SESSION_ID"],
		Kind:      legacyActivityKind(incidentType),
		FileName:  fields["FILE"],
		Extra: map[string]any{
			"tracking_id": fields["TRACKING_ID"],
			"details":     fields["DETAILS"],
		},
	})
	if err != nil {
		s.log.Warn("legacy activity record failed", "error", err)
	}
	return incident, nil
}

// legacyActivityKinds maps the embedded instrumentation's incident types to
// the activity vocabulary the query surface uses.
var legacyActivityKinds = map[string]string{
	"SAVE_AS_ATTEMPT":          "UNAUTHORIZED_SAVE_ATTEMPT",
	"LOCATION_CHANGE_SAVE":     "FILE_LOCATION_CHANGE",
	"PRINT_ATTEMPT":            "UNAUTHORIZED_PRINT_ATTEMPT",
	"REMOVABLE_DRIVE_DETECTED": "REMOVABLE_DRIVE_ACCESS",
	"CLOUD_STORAGE_DETECTED":   "CLOUD_STORAGE_ACCESS",
	"FILE_COPY_DETECTED":       "UNAUTHORIZED_FILE_COPY",
	"CLIPBOARD_ACCESS":         "DATA_COPY_ATTEMPT",
	"LARGE_SELECTION_COPY":     "BULK_DATA_SELECTION",
	"SCREEN_CAPTURE_ATTEMPT":   "SCREEN_CAPTURE_DETECTED",
	"BROWSER_DETECTED":         "POTENTIAL_UPLOAD_RISK",
	"NETWORK_ACTIVITY":         "SUSPICIOUS_NETWORK_ACTIVITY",
	"OFF_HOURS_ACCESS":         "OFF_HOURS_FILE_ACCESS",
	"PASSWORD_REMOVED":         "SECURITY_TAMPERING",
	"FILE_ACCESS":              "PROTECTED_FILE_ACCESS",
}

func legacyActivityKind(incidentType string) string {
	if kind, ok := legacyActivityKinds[incidentType]; ok {
		return kind
	}
	return "UNKNOWN_SECURITY_INCIDENT"
}

// ParsePipePayload splits the embedded instrumentation's KEY:value|KEY:value
// string. Values may contain colons; only the first one per segment splits.
func ParsePipePayload(data string) map[string]string {
	fields := make(map[string]string)
	for _, segment := range strings.Split(data, "|") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, ":")
		if !found {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
