package filter

import (
	"strings"

	"github.com/vijay-prabhu/mailcode/internal/email"
)

// Senders accepts messages from a fixed set of sender domains and
// addresses. Gmail's from: operator also matches display names, so
// candidates are checked again against the parsed From address.
type Senders struct {
	patterns []string
}

// NewSenders creates a sender filter. Patterns are domains
// ("netflix.com", matching subdomains too), full addresses, or local-part
// prefixes ending in "@" ("no-reply@").
func NewSenders(patterns []string) *Senders {
	s := &Senders{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			s.patterns = append(s.patterns, p)
		}
	}
	return s
}

// Allows reports whether the From header names an accepted sender. An
// empty filter accepts everything.
func (s *Senders) Allows(from string) bool {
	if s == nil || len(s.patterns) == 0 {
		return true
	}

	addr := strings.ToLower(email.ParseAddress(from).Email)
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return false
	}
	domain := addr[at+1:]

	for _, pattern := range s.patterns {
		if matchesSenderPattern(domain, addr, pattern) {
			return true
		}
	}
	return false
}

// matchesSenderPattern checks if a pattern matches the domain or address
func matchesSenderPattern(domain, fullEmail, pattern string) bool {
	// Pattern contains @ - it's a specific address pattern
	if strings.Contains(pattern, "@") {
		// Prefix match (e.g., "no-reply@" matches any "no-reply@*")
		if strings.HasSuffix(pattern, "@") {
			return strings.HasPrefix(fullEmail, pattern)
		}
		return fullEmail == pattern
	}

	// Exact domain match
	if domain == pattern {
		return true
	}

	// Subdomain (e.g., "account.netflix.com" matches "netflix.com")
	return strings.HasSuffix(domain, "."+pattern)
}
