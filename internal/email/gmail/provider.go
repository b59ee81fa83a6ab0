package gmail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vijay-prabhu/mailcode/internal/email"
	"github.com/vijay-prabhu/mailcode/internal/metrics"
)

const user = "me"

// ErrUnavailable is returned while the circuit breaker is open
var ErrUnavailable = errors.New("gmail api temporarily unavailable")

// Client is the process-wide Gmail adapter. It owns the circuit breaker and
// the call timeout and hands out per-credential providers.
type Client struct {
	callTimeout time.Duration
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
	opts        []option.ClientOption
}

// NewClient creates a Gmail client. Extra options are appended to every
// service (tests use them to point at a fake endpoint).
func NewClient(callTimeout time.Duration, logger *zap.Logger, opts ...option.ClientOption) *Client {
	settings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		callTimeout: callTimeout,
		breaker:     gobreaker.NewCircuitBreaker(settings),
		logger:      logger,
		opts:        opts,
	}
}

// Provider returns a provider bound to the given token source
func (c *Client) Provider(ctx context.Context, ts oauth2.TokenSource) (email.Provider, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)

	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Provider{service: service, client: c}, nil
}

// Provider implements email.Provider for one authorized Gmail account
type Provider struct {
	service *gmail.Service
	client  *Client
}

// ListMessages lists messages matching a Gmail search query
func (p *Provider) ListMessages(ctx context.Context, query string, max int) ([]email.MessageSummary, error) {
	var resp *gmail.ListMessagesResponse
	err := p.call(ctx, "list", func(ctx context.Context) error {
		var err error
		resp, err = p.service.Users.Messages.List(user).
			Q(query).
			MaxResults(int64(max)).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	summaries := make([]email.MessageSummary, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		summaries = append(summaries, email.MessageSummary{
			ID:           msg.Id,
			ThreadID:     msg.ThreadId,
			InternalDate: msg.InternalDate,
		})
	}
	return summaries, nil
}

// GetMetadata fetches headers and snippet only
func (p *Provider) GetMetadata(ctx context.Context, id string) (*email.Message, error) {
	var msg *gmail.Message
	err := p.call(ctx, "get_metadata", func(ctx context.Context) error {
		var err error
		msg, err = p.service.Users.Messages.Get(user, id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message metadata %s: %w", id, err)
	}

	return convertMessage(msg, false), nil
}

// GetFull fetches the complete message and decodes its body
func (p *Provider) GetFull(ctx context.Context, id string) (*email.Message, error) {
	var msg *gmail.Message
	err := p.call(ctx, "get_full", func(ctx context.Context) error {
		var err error
		msg, err = p.service.Users.Messages.Get(user, id).
			Format("full").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return convertMessage(msg, true), nil
}

// GetProfile returns the authorized mailbox profile
func (p *Provider) GetProfile(ctx context.Context) (*email.Profile, error) {
	var profile *gmail.Profile
	err := p.call(ctx, "get_profile", func(ctx context.Context) error {
		var err error
		profile, err = p.service.Users.GetProfile(user).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return &email.Profile{
		EmailAddress:  profile.EmailAddress,
		MessagesTotal: profile.MessagesTotal,
	}, nil
}

// nonCircuitError carries errors that must not count against the breaker
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string { return e.err.Error() }

// call runs one API request under the call timeout and the circuit breaker
func (p *Provider) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.client.callTimeout)
	defer cancel()

	start := time.Now()
	_, err := p.client.breaker.Execute(func() (interface{}, error) {
		if err := fn(ctx); err != nil {
			if !tripsBreaker(err) {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		err = nce.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if IsUnauthorized(err) {
		err = fmt.Errorf("%w: %w", email.ErrCredentialRejected, err)
	}

	metrics.RecordProviderCall(operation, err, time.Since(start))
	return err
}

// tripsBreaker reports whether an error signals a provider-side problem.
// Client errors (bad request, auth, not found) never open the circuit.
func tripsBreaker(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return false
	}

	return !errors.Is(err, context.Canceled)
}

// IsUnauthorized reports whether the provider rejected the credential
func IsUnauthorized(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 401
}
