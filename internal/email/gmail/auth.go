package gmail

import (
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Scopes defines the OAuth scopes required: read-only mailbox access
// plus basic identity so the callback can name the authorized account
var Scopes = []string{
	gmail.GmailReadonlyScope,
	"openid",
	"email",
	"profile",
}

// OAuthSettings identifies the OAuth client
type OAuthSettings struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	CredentialsPath string // Google client-secret JSON, wins over ClientID/ClientSecret
}

// NewOAuthConfig builds the OAuth config from a credentials file or from
// explicit client settings
func NewOAuthConfig(s OAuthSettings) (*oauth2.Config, error) {
	if s.CredentialsPath != "" {
		config, err := loadCredentials(s.CredentialsPath)
		if err != nil {
			return nil, err
		}
		if s.RedirectURL != "" {
			config.RedirectURL = s.RedirectURL
		}
		return config, nil
	}

	if s.ClientID == "" || s.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client id and secret are required")
	}

	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURL:  s.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}, nil
}

// loadCredentials loads OAuth config from credentials file
func loadCredentials(credPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w\n\nTo set up Gmail API:\n1. Go to https://console.cloud.google.com/\n2. Create a project and enable Gmail API\n3. Create OAuth 2.0 credentials (Web application)\n4. Download and save to: %s", err, credPath)
	}

	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return config, nil
}
