// Package conversation holds the ordered message log shown to the user.
//
// The log is append-only. The one permitted mutation is in-place text
// replacement of an existing agent message, which is how placeholders are
// resolved once results arrive.
package conversation

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/plandesk/types"
)

// Fixed message texts.
const (
	WelcomeText     = "Welcome to LeisurePlan.App! How can I help you?"
	PlaceholderText = "Message sent. Waiting for results..."
	FailedText      = "Query failed."
	TimedOutText    = "Query timed out, try again."
)

// ErrIndexOutOfRange is returned when a message index does not exist.
var ErrIndexOutOfRange = errors.New("message index out of range")

// ErrNotAgentMessage is returned when a mutation targets a user message.
var ErrNotAgentMessage = errors.New("message is not an agent message")

// Conversation is an ordered log of messages.
// It is not safe for concurrent use; a single owner mutates it.
type Conversation struct {
	messages []types.Message
}

// New creates a conversation seeded with an agent greeting.
// An empty greeting yields an empty conversation.
func New(greeting string) *Conversation {
	c := &Conversation{}
	if greeting != "" {
		c.Append(types.Message{Speaker: types.SpeakerAgent, Text: greeting})
	}
	return c
}

// Append adds a message and returns its index.
func (c *Conversation) Append(m types.Message) int {
	c.messages = append(c.messages, m)
	return len(c.messages) - 1
}

// AppendUser appends a user message.
func (c *Conversation) AppendUser(text string) int {
	return c.Append(types.Message{Speaker: types.SpeakerUser, Text: text})
}

// AppendAgent appends an agent message not bound to any query.
func (c *Conversation) AppendAgent(text string) int {
	return c.Append(types.Message{Speaker: types.SpeakerAgent, Text: text})
}

// AppendPlaceholder appends a pending agent placeholder and returns its index.
func (c *Conversation) AppendPlaceholder() int {
	return c.Append(types.Message{
		Speaker: types.SpeakerAgent,
		Text:    PlaceholderText,
		Pending: true,
	})
}

// Bind attaches a query id to the agent message at idx.
// A non-empty text replaces the message text.
func (c *Conversation) Bind(idx int, queryID, text string) error {
	m, err := c.agentAt(idx)
	if err != nil {
		return err
	}
	m.QueryID = queryID
	if text != "" {
		m.Text = text
	}
	return nil
}

// SetText replaces the text of the agent message at idx and marks it settled.
func (c *Conversation) SetText(idx int, text string) error {
	m, err := c.agentAt(idx)
	if err != nil {
		return err
	}
	m.Text = text
	m.Pending = false
	return nil
}

// ReplaceAgentText replaces the text of the most recent agent message bound
// to queryID, searching backward. It reports whether a message was replaced.
// Nothing is appended when no message matches.
func (c *Conversation) ReplaceAgentText(queryID, text string) bool {
	if queryID == "" {
		return false
	}
	for i := len(c.messages) - 1; i >= 0; i-- {
		m := &c.messages[i]
		if m.Speaker == types.SpeakerAgent && m.QueryID == queryID {
			m.Text = text
			m.Pending = false
			return true
		}
	}
	return false
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []types.Message {
	out := make([]types.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// At returns the message at idx.
func (c *Conversation) At(idx int) (types.Message, bool) {
	if idx < 0 || idx >= len(c.messages) {
		return types.Message{}, false
	}
	return c.messages[idx], true
}

// QueryIDs returns the distinct query ids in first-appearance order.
// This is the selectable history.
func (c *Conversation) QueryIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range c.messages {
		if m.QueryID == "" {
			continue
		}
		if _, ok := seen[m.QueryID]; ok {
			continue
		}
		seen[m.QueryID] = struct{}{}
		ids = append(ids, m.QueryID)
	}
	return ids
}

// PendingCount returns how many placeholders bound to queryID are unresolved.
func (c *Conversation) PendingCount(queryID string) int {
	n := 0
	for _, m := range c.messages {
		if m.Pending && m.QueryID == queryID {
			n++
		}
	}
	return n
}

func (c *Conversation) agentAt(idx int) (*types.Message, error) {
	if idx < 0 || idx >= len(c.messages) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
	}
	m := &c.messages[idx]
	if m.Speaker != types.SpeakerAgent {
		return nil, fmt.Errorf("%w: %d", ErrNotAgentMessage, idx)
	}
	return m, nil
}
