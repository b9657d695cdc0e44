package model

import (
	"strconv"
	"strings"
)

// Severity represents the severity level of an alert as sent by the server.
// The raw casing is preserved; use Label and Class for display.
type Severity string

// Severity levels
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// ParseSeverity converts a string to one of the known severity levels,
// ignoring case. Unknown values map to SeverityInfo and report false.
func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(strings.ToUpper(strings.TrimSpace(s))); sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return sev, true
	default:
		return SeverityInfo, false
	}
}

// Label is the uppercased severity used as display text.
func (s Severity) Label() string {
	return strings.ToUpper(string(s))
}

// Class is the lowercased severity used as the style key.
func (s Severity) Class() string {
	return strings.ToLower(string(s))
}

// Alert is a server-detected security event
type Alert struct {
	ID          int       `json:"id,omitempty"`
	Severity    Severity  `json:"severity"`
	RuleID      string    `json:"rule_id"`
	Description string    `json:"description"`
	Entities    Text      `json:"entities"`
	CreatedAt   Timestamp `json:"created_at"`
}

// LogEntry is a raw activity record ingested by the server
type LogEntry struct {
	ID               int       `json:"id,omitempty"`
	Timestamp        Timestamp `json:"timestamp"`
	User             string    `json:"user"`
	Action           string    `json:"action"`
	Status           string    `json:"status"`
	Device           string    `json:"device,omitempty"`
	SourceIP         string    `json:"source_ip"`
	Resource         string    `json:"resource,omitempty"`
	BytesTransferred int64     `json:"bytes_transferred,omitempty"`
	Geo              string    `json:"geo,omitempty"`
}

// DevicePlaceholder is shown for log entries without a device.
const DevicePlaceholder = "-"

// DeviceOrPlaceholder returns the device name, or "-" when it is empty.
func (l LogEntry) DeviceOrPlaceholder() string {
	if l.Device == "" {
		return DevicePlaceholder
	}
	return l.Device
}

// Dataset describes a demo data bundle the server can ingest
type Dataset struct {
	Filename   string `json:"filename"`
	Name       string `json:"name"`
	EventCount int    `json:"event_count"`
}

// OptionLabel is the text shown for the dataset in a selector.
func (d Dataset) OptionLabel() string {
	return d.Name + " (" + strconv.Itoa(d.EventCount) + " events)"
}

// DatasetList is the body of GET /demo/datasets
type DatasetList struct {
	Datasets []Dataset `json:"datasets"`
}

// IngestResult is the body of a successful dataset ingestion
type IngestResult struct {
	Message         string `json:"message,omitempty"`
	Ingested        int    `json:"ingested"`
	AlertsGenerated int    `json:"alerts_generated"`
}
