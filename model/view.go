package model

// Cell is one rendered table cell. Class is an optional style key.
type Cell struct {
	Text  string
	Class string
}

// Option is one entry of a selection control.
type Option struct {
	Value string
	Label string
}

// Table names used by the dashboard.
const (
	TableAlerts = "alerts"
	TableLogs   = "logs"
)

// Text field names used by the dashboard.
const (
	FieldAlertCount  = "alert-count"
	FieldLogCount    = "log-count"
	FieldLastRefresh = "last-refresh"
	FieldSummary     = "summary"
)
