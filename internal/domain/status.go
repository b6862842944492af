package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the stock health classification of a record
type Status string

const (
	StatusStockout Status = "STOCKOUT"
	StatusCritical Status = "CRITICAL"
	StatusWarning  Status = "WARNING"
	StatusHealthy  Status = "HEALTHY"
)

var statusLabels = map[Status]string{
	StatusStockout: "Stockout",
	StatusCritical: "Critical",
	StatusWarning:  "Warning",
	StatusHealthy:  "Healthy",
}

// severity orders statuses from worst (0) to best.
var statusSeverity = map[Status]int{
	StatusStockout: 0,
	StatusCritical: 1,
	StatusWarning:  2,
	StatusHealthy:  3,
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// Severity returns 0 for STOCKOUT up to 3 for HEALTHY, -1 when unknown.
func (s Status) Severity() int {
	if v, ok := statusSeverity[s]; ok {
		return v
	}
	return -1
}

// AtRisk reports whether the status counts toward the stockout risk KPI.
func (s Status) AtRisk() bool {
	return s == StatusStockout || s == StatusCritical
}

// ParseStatus returns the status for a given label (case-insensitive).
func ParseStatus(label string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(label)))
	_, ok := statusLabels[s]

	return s, ok
}

// StatusSet is a set of statuses. The zero value matches every status.
type StatusSet uint8

// NewStatusSet builds a set from known statuses; unknown ones are ignored.
func NewStatusSet(statuses ...Status) StatusSet {
	var set StatusSet
	for _, st := range statuses {
		if sev := st.Severity(); sev >= 0 {
			set |= 1 << sev
		}
	}
	return set
}

// ParseStatusSet parses status codes given as separate values or comma separated.
func ParseStatusSet(values ...string) (StatusSet, error) {
	var set StatusSet
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, ok := ParseStatus(part)
			if !ok {
				return 0, fmt.Errorf("status %q: %w", part, ErrInvalidStatus)
			}
			set |= NewStatusSet(st)
		}
	}
	return set, nil
}

// Has reports whether st is in the set.
func (s StatusSet) Has(st Status) bool {
	if s == 0 {
		return true
	}
	sev := st.Severity()
	return sev >= 0 && s&(1<<sev) != 0
}

// Statuses lists the members worst first. The zero set lists nothing.
func (s StatusSet) Statuses() []Status {
	out := make([]Status, 0, len(statusSeverity))
	for _, st := range []Status{StatusStockout, StatusCritical, StatusWarning, StatusHealthy} {
		if s != 0 && s.Has(st) {
			out = append(out, st)
		}
	}
	return out
}

func (s StatusSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Statuses())
}
