package filter

import "testing"

func TestSenders_Allows(t *testing.T) {
	s := NewSenders([]string{"netflix.com", "Info@Account.Netflix.com", "no-reply@", " "})

	tests := []struct {
		name string
		from string
		want bool
	}{
		{"display name and domain", "Netflix <info@account.netflix.com>", true},
		{"bare domain", "member@netflix.com", true},
		{"subdomain", "x@mailer.netflix.com", true},
		{"upper case", "INFO@ACCOUNT.NETFLIX.COM", true},
		{"prefix pattern", "no-reply@example.org", true},
		{"lookalike suffix", "info@netflix.com.evil.io", false},
		{"lookalike prefix", "info@notnetflix.com", false},
		{"name only mentions netflix", "Netflix <support@evil.io>", false},
		{"empty", "", false},
		{"no domain", "netflix", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Allows(tt.from); got != tt.want {
				t.Errorf("Allows(%q) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestSenders_EmptyAllowsAll(t *testing.T) {
	for _, s := range []*Senders{nil, NewSenders(nil), NewSenders([]string{""})} {
		if !s.Allows("anyone@example.com") {
			t.Error("empty filter should accept every sender")
		}
	}
}

func TestMatchesSenderPattern(t *testing.T) {
	tests := []struct {
		domain, email, pattern string
		want                   bool
	}{
		{"netflix.com", "a@netflix.com", "netflix.com", true},
		{"account.netflix.com", "a@account.netflix.com", "netflix.com", true},
		{"netflix.com", "a@netflix.com", "account.netflix.com", false},
		{"netflix.com", "a@netflix.com", "a@netflix.com", true},
		{"netflix.com", "b@netflix.com", "a@netflix.com", false},
		{"netflix.com", "a@netflix.com", "a@", true},
		{"netflix.com", "ba@netflix.com", "a@", false},
	}

	for _, tt := range tests {
		if got := matchesSenderPattern(tt.domain, tt.email, tt.pattern); got != tt.want {
			t.Errorf("matchesSenderPattern(%q, %q, %q) = %v, want %v", tt.domain, tt.email, tt.pattern, got, tt.want)
		}
	}
}
