package types

import "strings"

// QueryStatus is the server-reported state of a query.
type QueryStatus string

// Status tokens returned by the service.
const (
	StatusWorking       QueryStatus = "Working"
	StatusPreprocessing QueryStatus = "Preprocessing"
	StatusDone          QueryStatus = "Done"
	StatusFailed        QueryStatus = "Failed"
	StatusTimeout       QueryStatus = "Timeout"
)

var knownStatuses = []QueryStatus{
	StatusWorking,
	StatusPreprocessing,
	StatusDone,
	StatusFailed,
	StatusTimeout,
}

// ParseQueryStatus maps a raw status token to a QueryStatus.
// Surrounding whitespace is ignored and matching is case-insensitive.
func ParseQueryStatus(raw string) (QueryStatus, bool) {
	token := strings.TrimSpace(raw)
	for _, s := range knownStatuses {
		if strings.EqualFold(token, string(s)) {
			return s, true
		}
	}
	return "", false
}

// InProgress returns true while the service is still processing the query.
func (s QueryStatus) InProgress() bool {
	return s == StatusWorking || s == StatusPreprocessing
}

// IsTerminal returns true for statuses after which no polling occurs.
func (s QueryStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusTimeout
}
