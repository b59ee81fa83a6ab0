package gmail

import (
	"encoding/base64"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/vijay-prabhu/mailcode/internal/email"
)

// metadataHeaders are the headers requested in the metadata phase
var metadataHeaders = []string{"From", "To", "Delivered-To", "Date", "Subject"}

// convertMessage converts a Gmail message to our Message type.
// The body is only extracted when withBody is set (full format).
func convertMessage(msg *gmail.Message, withBody bool) *email.Message {
	m := &email.Message{
		MessageSummary: email.MessageSummary{
			ID:           msg.Id,
			ThreadID:     msg.ThreadId,
			InternalDate: msg.InternalDate,
		},
		Snippet: msg.Snippet,
	}

	if msg.Payload == nil {
		return m
	}

	// Extract headers
	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			m.Headers.From = header.Value
		case "to":
			m.Headers.To = header.Value
		case "delivered-to":
			// Several hops may add one; keep the first (closest to the mailbox)
			if m.Headers.DeliveredTo == "" {
				m.Headers.DeliveredTo = header.Value
			}
		case "date":
			m.Headers.Date = header.Value
		case "subject":
			m.Headers.Subject = header.Value
		}
	}

	if withBody {
		m.Body = ExtractBody(msg.Payload)
	}

	return m
}

// ExtractBody walks the part tree and decodes every inline text/plain and
// text/html part. Same-type parts are joined with newlines in traversal order.
// A payload without parts is handled as a single part.
func ExtractBody(payload *gmail.MessagePart) email.MessageBody {
	var plain, html []string

	var walk func(p *gmail.MessagePart)
	walk = func(p *gmail.MessagePart) {
		if p == nil {
			return
		}

		// Attachments that happen to be text are not part of the message body
		if p.Filename == "" && p.Body != nil && p.Body.Data != "" {
			switch mimeType(p.MimeType) {
			case "text/plain":
				if text, err := decodeBody(p.Body.Data); err == nil && text != "" {
					plain = append(plain, text)
				}
			case "text/html":
				if text, err := decodeBody(p.Body.Data); err == nil && text != "" {
					html = append(html, text)
				}
			}
		}

		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(payload)

	return email.NewMessageBody(strings.Join(plain, "\n"), strings.Join(html, "\n"))
}

// decodeBody decodes URL-safe base64, tolerating missing padding and the
// standard alphabet some producers emit
func decodeBody(data string) (string, error) {
	data = strings.TrimRight(strings.TrimSpace(data), "=")

	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return "", err
		}
	}

	return string(decoded), nil
}

// mimeType lower-cases a declared type and drops any parameters
func mimeType(declared string) string {
	if i := strings.Index(declared, ";"); i != -1 {
		declared = declared[:i]
	}
	return strings.ToLower(strings.TrimSpace(declared))
}
