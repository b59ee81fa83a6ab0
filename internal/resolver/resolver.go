package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vijay-prabhu/mailcode/internal/allowlist"
	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/cache"
	"github.com/vijay-prabhu/mailcode/internal/classifier"
	"github.com/vijay-prabhu/mailcode/internal/config"
	"github.com/vijay-prabhu/mailcode/internal/email"
	"github.com/vijay-prabhu/mailcode/internal/filter"
	"github.com/vijay-prabhu/mailcode/internal/metrics"
)

// Credentials hands out a fresh mailbox credential
type Credentials interface {
	EnsureCredential(ctx context.Context) (*auth.Handle, error)
}

// Deps are the collaborators of a Resolver
type Deps struct {
	AllowList   *allowlist.List
	Cache       cache.Cache
	Credentials Credentials
	Providers   email.ProviderFactory
	Classifier  *classifier.Classifier
	Logger      *zap.Logger
}

// Resolver finds the most recent qualifying message for an alias
type Resolver struct {
	search     config.SearchConfig
	senders    *filter.Senders
	dedupe     bool
	allow      *allowlist.List
	cache      cache.Cache
	creds      Credentials
	providers  email.ProviderFactory
	classifier *classifier.Classifier
	logger     *zap.Logger

	inflight singleflight.Group
}

// New creates a Resolver. With dedupe set, concurrent cache misses for
// the same alias share one upstream resolution.
func New(search config.SearchConfig, dedupe bool, d Deps) *Resolver {
	if d.Classifier == nil {
		d.Classifier = classifier.Default()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	return &Resolver{
		search:     search,
		senders:    filter.NewSenders(search.Senders),
		dedupe:     dedupe,
		allow:      d.AllowList,
		cache:      d.Cache,
		creds:      d.Credentials,
		providers:  d.Providers,
		classifier: d.Classifier,
		logger:     d.Logger,
	}
}

// Options configures a single resolution
type Options struct {
	SkipCache bool             // Ignore a cached result (the fresh one is still stored)
	Progress  ProgressCallback // Optional stage callback
}

// ResolveLatest resolves alias with default options
func (r *Resolver) ResolveLatest(ctx context.Context, alias string) (*email.ResolvedResult, error) {
	return r.ResolveWithOptions(ctx, alias, Options{})
}

// ResolveWithOptions runs the pipeline:
// allow-list, cache, credential, candidate listing, metadata scan,
// full fetch, classification, cache store.
func (r *Resolver) ResolveWithOptions(ctx context.Context, alias string, opts Options) (*email.ResolvedResult, error) {
	result, err := r.resolveLatest(ctx, alias, opts)
	metrics.RecordResolution(Outcome(err))
	return result, err
}

func (r *Resolver) resolveLatest(ctx context.Context, alias string, opts Options) (*email.ResolvedResult, error) {
	report := func(stage Stage, current, total int, desc string) {
		r.logger.Debug("resolution stage",
			zap.String("stage", string(stage)),
			zap.Int("current", current),
			zap.Int("total", total),
		)
		if opts.Progress != nil {
			opts.Progress(Progress{Stage: stage, Current: current, Total: total, Description: desc})
		}
	}

	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" || !strings.Contains(alias, "@") {
		return nil, ErrMalformedInput
	}

	report(StageCheckAllowList, 0, 0, "Checking allow-list")
	if !r.allow.Allowed(alias) {
		r.logger.Info("alias rejected by allow-list", zap.String("alias", alias))
		return nil, ErrUnauthorized
	}

	// Each sub-address reaches a different person. The cache and in-flight
	// key is the exact alias the query searches for, never the normalized
	// base address the allow-list compares.
	key := alias

	if !opts.SkipCache {
		report(StageCheckCache, 0, 0, "Checking result cache")
		cached, found, err := r.cache.Get(ctx, key)
		if err != nil {
			// A broken cache degrades to a miss
			r.logger.Warn("cache lookup failed", zap.String("alias", key), zap.Error(err))
		}
		metrics.RecordCacheLookup(found)
		if found {
			r.logger.Debug("cache hit", zap.String("alias", key))
			return cached, nil
		}
	}

	// Once started, a resolution runs to completion even if the caller leaves
	ctx = context.WithoutCancel(ctx)

	if !r.dedupe || opts.Progress != nil {
		return r.resolve(ctx, alias, key, report)
	}

	v, err, shared := r.inflight.Do(key, func() (interface{}, error) {
		return r.resolve(ctx, alias, key, report)
	})
	if shared {
		r.logger.Debug("joined in-flight resolution", zap.String("alias", key))
	}
	if err != nil {
		return nil, err
	}
	return v.(*email.ResolvedResult), nil
}

func (r *Resolver) resolve(ctx context.Context, alias, key string, report func(Stage, int, int, string)) (*email.ResolvedResult, error) {
	report(StageEnsureCredential, 0, 0, "Ensuring mailbox credential")
	handle, err := r.creds.EnsureCredential(ctx)
	if err != nil {
		return nil, credentialError(err)
	}

	provider, err := r.providers.Provider(ctx, handle.TokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	query := BuildQuery(r.search, alias)
	report(StageListCandidates, 0, 0, "Listing candidate messages")
	summaries, err := provider.ListMessages(ctx, query, r.search.MaxCandidates)
	if err != nil {
		return nil, providerError(err)
	}
	r.logger.Debug("candidates listed",
		zap.String("alias", alias),
		zap.String("query", query),
		zap.Int("count", len(summaries)),
	)
	if len(summaries) == 0 {
		return nil, ErrNotFound
	}

	report(StageScanMetadata, 0, len(summaries), "Fetching message metadata")
	candidates, err := r.fetchMetadata(ctx, provider, summaries)
	if err != nil {
		return nil, providerError(err)
	}

	candidates = r.fromKnownSenders(candidates)
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	msg, cls, err := r.scan(ctx, provider, candidates, report)
	if err != nil {
		return nil, err
	}

	report(StageCacheAndReturn, 0, 0, "Caching result")
	result := buildResult(msg, cls)
	if err := r.cache.Set(ctx, key, result); err != nil {
		r.logger.Warn("cache store failed", zap.String("alias", key), zap.Error(err))
	}

	r.logger.Info("alias resolved",
		zap.String("alias", alias),
		zap.String("kind", result.Kind),
		zap.String("message_id", result.ID),
	)
	return result, nil
}

// fetchMetadata fetches headers and snippets in parallel and returns them
// newest first. Provider order is not trusted.
func (r *Resolver) fetchMetadata(ctx context.Context, provider email.Provider, summaries []email.MessageSummary) ([]*email.Message, error) {
	messages := make([]*email.Message, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	if r.search.MetadataConcurrency > 0 {
		g.SetLimit(r.search.MetadataConcurrency)
	}

	for i, s := range summaries {
		g.Go(func() error {
			msg, err := provider.GetMetadata(gctx, s.ID)
			if err != nil {
				return err
			}
			messages[i] = msg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].InternalDate > messages[j].InternalDate
	})
	return messages, nil
}

// fromKnownSenders drops candidates whose From address is not a configured
// sender
func (r *Resolver) fromKnownSenders(candidates []*email.Message) []*email.Message {
	kept := candidates[:0]
	for _, c := range candidates {
		if r.senders.Allows(c.Headers.From) {
			kept = append(kept, c)
			continue
		}
		r.logger.Debug("candidate from unknown sender skipped",
			zap.String("message_id", c.ID),
			zap.String("from", c.Headers.From),
		)
	}
	return kept
}

// scan runs the cheap subject+snippet pass, revalidating every provisional
// match on the full body, then falls back to full fetches of the newest
// candidates not fetched yet
func (r *Resolver) scan(ctx context.Context, provider email.Provider, candidates []*email.Message, report func(Stage, int, int, string)) (*email.Message, classifier.Classification, error) {
	fetched := make(map[string]bool)

	fetchAndClassify := func(id string) (*email.Message, classifier.Classification, error) {
		fetched[id] = true
		full, err := provider.GetFull(ctx, id)
		if err != nil {
			return nil, classifier.Classification{}, providerError(err)
		}
		return full, r.classifier.Classify(full.Headers.Subject, full.Body.Combined), nil
	}

	for i, c := range candidates {
		report(StageClassify, i+1, len(candidates), "Classifying by subject and snippet")
		provisional := r.classifier.Classify(c.Headers.Subject, c.Snippet)
		if !provisional.Kind.Qualifies() {
			continue
		}

		report(StageFetchFull, i+1, len(candidates), "Fetching full message")
		full, cls, err := fetchAndClassify(c.ID)
		if err != nil {
			return nil, cls, err
		}
		if cls.Kind.Qualifies() {
			return full, cls, nil
		}
		r.logger.Debug("provisional match rejected on full body",
			zap.String("message_id", c.ID),
			zap.String("provisional", string(provisional.Kind)),
		)
	}

	budget := r.search.FullFetchFallback
	for _, c := range candidates {
		if budget <= 0 {
			break
		}
		if fetched[c.ID] {
			continue
		}
		budget--

		report(StageFetchFull, r.search.FullFetchFallback-budget, r.search.FullFetchFallback, "Fetching full message (fallback)")
		full, cls, err := fetchAndClassify(c.ID)
		if err != nil {
			return nil, cls, err
		}
		if cls.Kind.Qualifies() {
			return full, cls, nil
		}
	}

	return nil, classifier.Classification{}, ErrNotFound
}

// buildResult maps a message to the response shape. HTML wins over plain
// text; Text is only set when there is no HTML.
func buildResult(msg *email.Message, cls classifier.Classification) *email.ResolvedResult {
	result := &email.ResolvedResult{
		Kind:         string(cls.Kind),
		URL:          cls.URL,
		ID:           msg.ID,
		ThreadID:     msg.ThreadID,
		InternalDate: msg.InternalDate,
		Snippet:      msg.Snippet,
		Headers:      msg.Headers,
	}

	if msg.Body.HTML != "" {
		html := msg.Body.HTML
		result.HTML = &html
	} else {
		text := msg.Body.Plain
		result.Text = &text
	}

	return result
}
