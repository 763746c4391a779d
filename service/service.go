// Package service is the HTTP client for the remote planning-query API.
//
// All endpoints live under <base>/api/Chat. Every request carries the
// configured bearer token and static headers. Non-2xx responses are returned
// as *StatusError so callers can tell server rejections from transport
// failures.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/plandesk/types"
)

// ErrUnknownStatus is returned by Status when the service answers with a
// token that is not a known QueryStatus.
var ErrUnknownStatus = errors.New("unknown query status")

// ErrMissingIdentity is returned when a submit response lacks a session or
// query id.
var ErrMissingIdentity = errors.New("submit response missing session or query id")

// SubmitRequest is the body of a submission.
type SubmitRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// SubmitResponse is the correlation identity returned by a submission.
type SubmitResponse struct {
	SessionID string `json:"chatSessionId"`
	QueryID   string `json:"chatQueryId"`
	// Reply is an optional immediate agent reply.
	Reply string `json:"reply,omitempty"`
}

// Key returns the query key of the response.
func (r *SubmitResponse) Key() types.QueryKey {
	return types.QueryKey{SessionID: r.SessionID, QueryID: r.QueryID}
}

// Service is the remote job API.
type Service interface {
	// Submit sends a message and returns the assigned identity.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
	// Status returns the current status of a query.
	Status(ctx context.Context, key types.QueryKey) (types.QueryStatus, error)
	// Dialog returns the raw transcript of a session.
	Dialog(ctx context.Context, sessionID string) (string, error)
	// Inputs returns the structured model inputs of a query.
	Inputs(ctx context.Context, key types.QueryKey) (map[string]any, error)
	// Chart returns the bytes of one chart artifact.
	Chart(ctx context.Context, key types.QueryKey, kind types.ChartKind) ([]byte, error)
	// DetailReport returns the markup detail report of a query.
	DetailReport(ctx context.Context, key types.QueryKey) ([]byte, error)
}

// Op names an API operation.
type Op string

// API operations.
const (
	OpSubmit       Op = "submit"
	OpStatus       Op = "status"
	OpDialog       Op = "dialog"
	OpInputs       Op = "inputs"
	OpChart        Op = "chart"
	OpDetailReport Op = "detail_report"
)

var opFailures = map[Op]string{
	OpSubmit:       "failed to submit message",
	OpStatus:       "failed to fetch query status",
	OpDialog:       "failed to load chat dialog",
	OpInputs:       "failed to load retirement inputs",
	OpChart:        "failed to load chart",
	OpDetailReport: "failed to load flows table",
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Op   Op
	Code int
	// Body is the response body, trimmed.
	Body string
}

// Error returns the server's message for rejected submissions and a fixed
// per-operation message otherwise.
func (e *StatusError) Error() string {
	if e.Op == OpSubmit && e.Body != "" {
		return e.Body
	}
	msg, ok := opFailures[e.Op]
	if !ok {
		msg = "request failed"
	}
	return fmt.Sprintf("%s: unexpected status %d", msg, e.Code)
}

// IsClientError reports whether the server rejected the request (4xx).
func (e *StatusError) IsClientError() bool {
	return e.Code >= 400 && e.Code < 500
}

// IsUnreachable reports whether err is a transport failure rather than a
// server response. Used by the CLI to pick an exit code.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	return !errors.Is(err, ErrUnknownStatus) && !errors.Is(err, ErrMissingIdentity)
}
