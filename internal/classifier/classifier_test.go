package classifier

import (
	"regexp"
	"testing"
)

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		subject  string
		body     string
		wantKind Kind
		wantURL  string
	}{
		{
			name:     "household link in html",
			subject:  "Importante: Cómo actualizar tu Hogar con Netflix",
			body:     `<a href="https://www.netflix.com/account/update-primary-location?nftoken=abc&amp;g=1">Sí, la envié yo</a>`,
			wantKind: KindHomeLink,
			wantURL:  "https://www.netflix.com/account/update-primary-location?nftoken=abc&g=1",
		},
		{
			name:     "household link without www",
			subject:  "Netflix",
			body:     "Open https://netflix.com/ACCOUNT/Update-Primary-Location/x?t=1 now",
			wantKind: KindHomeLink,
			wantURL:  "https://netflix.com/ACCOUNT/Update-Primary-Location/x?t=1",
		},
		{
			name:     "household phrase without link",
			subject:  "Update your Netflix household",
			body:     "Tap the button in the app.",
			wantKind: KindHomeLink,
		},
		{
			name:     "travel verification link",
			subject:  "Netflix",
			body:     "https://www.netflix.com/account/travel/verify?nftoken=xyz",
			wantKind: KindAccessCode,
		},
		{
			name:     "spanish temporary access phrase",
			subject:  "Tu código de acceso temporal de Netflix",
			body:     "Ingresa este código en tu TV: 1 2 3 4",
			wantKind: KindAccessCode,
		},
		{
			name:     "english phrase in body only",
			subject:  "Netflix",
			body:     "Here is your TEMPORARY ACCESS code.",
			wantKind: KindAccessCode,
		},
		{
			name:     "bracketed plain-text link",
			subject:  "Netflix",
			body:     "Confirma aquí: [https://www.netflix.com/account/update-primary-location?x=1]",
			wantKind: KindHomeLink,
			wantURL:  "https://www.netflix.com/account/update-primary-location?x=1",
		},
		{
			name:     "unrelated netflix link",
			subject:  "New on Netflix",
			body:     "Watch now https://www.netflix.com/title/80057281",
			wantKind: KindOther,
		},
		{
			name:     "other provider link with home path",
			subject:  "Hello",
			body:     "https://evil.example.com/account/update-primary-location",
			wantKind: KindOther,
		},
		{
			name:     "empty",
			wantKind: KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.subject, tt.body)

			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			gotURL := ""
			if got.URL != nil {
				gotURL = *got.URL
			}
			if gotURL != tt.wantURL {
				t.Errorf("URL = %q, want %q", gotURL, tt.wantURL)
			}
		})
	}
}

func TestClassify_HouseholdPrecedesAccess(t *testing.T) {
	c := Default()

	body := "Tu código de acceso temporal está listo.\n" +
		"https://www.netflix.com/account/update-primary-location?nftoken=1"
	got := c.Classify("Tu código de acceso temporal", body)

	if got.Kind != KindHomeLink {
		t.Errorf("Kind = %q, want %q", got.Kind, KindHomeLink)
	}
	if got.Rule != "household_update" {
		t.Errorf("Rule = %q, want household_update", got.Rule)
	}
}

func TestClassify_PasswordMailExcluded(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		subject string
		body    string
	}{
		{
			name:    "spanish reset mentioning sign-in",
			subject: "Completa tu solicitud de restablecimiento de contraseña",
			body:    "Restablece tu contraseña para completar el inicio de sesión.",
		},
		{
			name:    "english reset with access wording",
			subject: "Reset your password",
			body:    "Use this link to regain access: https://www.netflix.com/password?g=1",
		},
		{
			name:    "reset link next to travel path",
			subject: "Netflix",
			body:    "Restablecer: https://www.netflix.com/account/travel/verify?nftoken=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.subject, tt.body)
			if got.Kind != KindOther {
				t.Errorf("Kind = %q (rule %q), want %q", got.Kind, got.Rule, KindOther)
			}
			if got.Rule != "password_reset" {
				t.Errorf("Rule = %q, want password_reset", got.Rule)
			}
			if got.Kind.Qualifies() {
				t.Error("password mail must not qualify")
			}
		})
	}
}

func TestClassify_MalformedLinkSkipped(t *testing.T) {
	c := Default()

	body := "broken https://www.netflix.com/%zz/account/update-primary-location then " +
		"https://www.netflix.com/account/update-primary-location?ok=1"
	got := c.Classify("Netflix", body)

	if got.Kind != KindHomeLink {
		t.Fatalf("Kind = %q, want %q", got.Kind, KindHomeLink)
	}
	if got.URL == nil || *got.URL != "https://www.netflix.com/account/update-primary-location?ok=1" {
		t.Errorf("URL = %v, want the parsable link", got.URL)
	}
}

func TestClassify_Total(t *testing.T) {
	c := Default()

	inputs := []struct{ subject, body string }{
		{"", ""},
		{"\x00\xff", "\xfe\xfd"},
		{"https://", "https://www.netflix.com/"},
		{"", "https://www.netflix.com/%"},
		{"código", "<html><body></body></html>"},
	}

	for _, in := range inputs {
		got := c.Classify(in.subject, in.body)
		switch got.Kind {
		case KindAccessCode, KindHomeLink, KindOther:
		default:
			t.Errorf("Classify(%q, %q) = %q, not a known kind", in.subject, in.body, got.Kind)
		}
	}
}

func TestNew_CustomRules(t *testing.T) {
	c := New(regexp.MustCompile(`https://example\.com/\S+`), []Rule{
		{Name: "first", Kind: KindAccessCode, Phrases: []string{"alpha"}},
		{Name: "second", Kind: KindHomeLink, LinkPath: regexp.MustCompile(`^/home`), WithURL: true},
	})

	if got := c.Classify("alpha", "https://example.com/home"); got.Rule != "first" {
		t.Errorf("Rule = %q, want first (earlier rule wins)", got.Rule)
	}
	if got := c.Classify("beta", "https://example.com/home"); got.Kind != KindHomeLink || got.URL == nil {
		t.Errorf("Classify() = %+v, want home link with URL", got)
	}
	if len(c.Rules()) != 2 {
		t.Errorf("Rules() len = %d", len(c.Rules()))
	}
}

func TestKind_Qualifies(t *testing.T) {
	if !KindAccessCode.Qualifies() || !KindHomeLink.Qualifies() {
		t.Error("access_code and home_link must qualify")
	}
	if KindOther.Qualifies() {
		t.Error("other must not qualify")
	}
}
