// Package types defines core domain types for the plandesk client.
//
//nolint:revive // types is a common Go package naming convention
package types

// Speaker attributes a turn or message to one side of the conversation.
type Speaker string

// Speaker constants.
const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Turn is one attributed block of dialog text recovered from a raw transcript.
// Turns are produced only by the dialog parser and never mutated.
type Turn struct {
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
}

// Message is one entry of the displayed conversation.
type Message struct {
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
	// QueryID links an agent reply to the query that produced it.
	// Empty for user messages, status reports and unbound placeholders.
	QueryID string `json:"query_id,omitempty" yaml:"query_id,omitempty"`
	// Pending is true while the message is a placeholder awaiting hydration.
	Pending bool `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// QueryKey identifies one query within one session.
// All in-flight work (poll ticks, status checks, hydrations) is keyed by it.
type QueryKey struct {
	SessionID string `json:"session_id" yaml:"session_id" msgpack:"session_id"`
	QueryID   string `json:"query_id" yaml:"query_id" msgpack:"query_id"`
}

// IsZero reports whether the key carries no identity.
func (k QueryKey) IsZero() bool {
	return k.SessionID == "" && k.QueryID == ""
}

// String returns "session/query" for logs.
func (k QueryKey) String() string {
	return k.SessionID + "/" + k.QueryID
}

// Session is the conversation-level identity and selection state.
type Session struct {
	// SessionID is assigned by the service on the first submission.
	SessionID string `json:"session_id" yaml:"session_id"`
	// CurrentQueryID is the most recent submission.
	CurrentQueryID string `json:"current_query_id" yaml:"current_query_id"`
	// SelectedQueryID is the query whose results are displayed.
	SelectedQueryID string `json:"selected_query_id" yaml:"selected_query_id"`
}

// LiveKey returns the key of the most recent submission.
func (s Session) LiveKey() QueryKey {
	return QueryKey{SessionID: s.SessionID, QueryID: s.CurrentQueryID}
}

// SelectedKey returns the key of the displayed query.
func (s Session) SelectedKey() QueryKey {
	return QueryKey{SessionID: s.SessionID, QueryID: s.SelectedQueryID}
}
