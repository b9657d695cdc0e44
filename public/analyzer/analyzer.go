package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awion/sentinel-dash/model"
)

// TopUsersLimit is the number of users listed in a summary
const TopUsersLimit = 5

// SeverityCount is the number of alerts at one severity
type SeverityCount struct {
	Severity string
	Count    int
}

// UserCount is the number of log events attributed to one user
type UserCount struct {
	User   string
	Events int
}

// Summary condenses one refresh worth of alerts and logs
type Summary struct {
	Alerts     int
	Logs       int
	Severities []SeverityCount
	TopUsers   []UserCount
}

// severityRank orders known severities from most to least urgent
var severityRank = map[model.Severity]int{
	model.SeverityCritical: 0,
	model.SeverityHigh:     1,
	model.SeverityMedium:   2,
	model.SeverityLow:      3,
	model.SeverityInfo:     4,
}

// Summarize builds a summary from the records of a single refresh
func Summarize(alerts []model.Alert, logs []model.LogEntry) Summary {
	summary := Summary{
		Alerts: len(alerts),
		Logs:   len(logs),
	}

	bySeverity := make(map[string]int)
	for _, alert := range alerts {
		bySeverity[alert.Severity.Class()]++
	}
	for sev, count := range bySeverity {
		summary.Severities = append(summary.Severities, SeverityCount{Severity: sev, Count: count})
	}
	sort.Slice(summary.Severities, func(i, j int) bool {
		return lessSeverity(summary.Severities[i].Severity, summary.Severities[j].Severity)
	})

	byUser := make(map[string]int)
	for _, log := range logs {
		byUser[log.User]++
	}
	for user, events := range byUser {
		summary.TopUsers = append(summary.TopUsers, UserCount{User: user, Events: events})
	}
	sort.Slice(summary.TopUsers, func(i, j int) bool {
		a, b := summary.TopUsers[i], summary.TopUsers[j]
		if a.Events != b.Events {
			return a.Events > b.Events
		}
		return a.User < b.User
	})
	if len(summary.TopUsers) > TopUsersLimit {
		summary.TopUsers = summary.TopUsers[:TopUsersLimit]
	}

	return summary
}

func lessSeverity(a, b string) bool {
	ra, knownA := rank(a)
	rb, knownB := rank(b)
	switch {
	case knownA && knownB:
		return ra < rb
	case knownA != knownB:
		return knownA
	default:
		return a < b
	}
}

func rank(severity string) (int, bool) {
	sev, known := model.ParseSeverity(severity)
	if !known {
		return 0, false
	}
	return severityRank[sev], true
}

// Count returns the number of alerts at the given severity, ignoring case
func (s Summary) Count(severity string) int {
	severity = strings.ToLower(severity)
	for _, sc := range s.Severities {
		if sc.Severity == severity {
			return sc.Count
		}
	}
	return 0
}

// String renders the summary on one line, e.g.
// "critical=1 high=2 | top: alice(12) bob(3)"
func (s Summary) String() string {
	var b strings.Builder
	if len(s.Severities) == 0 {
		b.WriteString("no alerts")
	}
	for i, sc := range s.Severities {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", sc.Severity, sc.Count)
	}
	if len(s.TopUsers) > 0 {
		b.WriteString(" | top:")
		for _, uc := range s.TopUsers {
			fmt.Fprintf(&b, " %s(%d)", uc.User, uc.Events)
		}
	}
	return b.String()
}
