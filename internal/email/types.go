package email

import (
	"strings"
)

// MessageSummary is the identity and ordering key of a provider message
type MessageSummary struct {
	ID           string // Provider-specific ID
	ThreadID     string // Thread/conversation ID
	InternalDate int64  // Delivery timestamp, epoch millis
}

// MessageBody holds the decoded textual content of one message.
// Combined is what the classifier sees: plain then html, empty parts skipped.
type MessageBody struct {
	Plain    string
	HTML     string
	Combined string
}

// NewMessageBody builds a body, deriving Combined from both parts
func NewMessageBody(plain, html string) MessageBody {
	var parts []string
	for _, p := range []string{plain, html} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return MessageBody{
		Plain:    plain,
		HTML:     html,
		Combined: strings.Join(parts, "\n"),
	}
}

// IsEmpty reports whether no textual content was decoded
func (b MessageBody) IsEmpty() bool {
	return b.Plain == "" && b.HTML == ""
}

// Headers is the fixed header set exposed to callers
type Headers struct {
	From        string `json:"from"`
	To          string `json:"to"`
	DeliveredTo string `json:"deliveredTo"`
	Date        string `json:"date"`
	Subject     string `json:"subject"`
}

// Message is a provider message at either fetch depth. Body is empty for
// messages fetched in the metadata phase.
type Message struct {
	MessageSummary
	Snippet string
	Headers Headers
	Body    MessageBody
}

// Profile describes the authorized mailbox
type Profile struct {
	EmailAddress  string
	MessagesTotal int64
}

// ResolvedResult is the renderable outcome of a resolution.
// Text is only set when HTML is absent.
type ResolvedResult struct {
	Kind         string  `json:"kind"`
	URL          *string `json:"url,omitempty"`
	ID           string  `json:"id"`
	ThreadID     string  `json:"threadId"`
	InternalDate int64   `json:"internalDate"`
	Snippet      string  `json:"snippet"`
	Headers      Headers `json:"headers"`
	HTML         *string `json:"html"`
	Text         *string `json:"text"`
}

// Address represents an email address with optional name
type Address struct {
	Name  string
	Email string
}

// ParseAddress parses an email address string like "Name <email@example.com>"
func ParseAddress(s string) Address {
	s = strings.TrimSpace(s)

	// Try to extract name and email from "Name <email>" format
	if start := strings.Index(s, "<"); start != -1 {
		if end := strings.Index(s, ">"); end > start {
			return Address{
				Name:  strings.Trim(strings.TrimSpace(s[:start]), `"`),
				Email: strings.TrimSpace(s[start+1 : end]),
			}
		}
	}

	// Just an email address
	return Address{Email: s}
}
