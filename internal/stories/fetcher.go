package stories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"storyreel/internal/library"
	"storyreel/internal/logging"
	"storyreel/internal/notifications"
	"storyreel/internal/services"
	"storyreel/internal/textutil"
)

// duplicateSimilarity is the cosine similarity above which a post's text is
// treated as a repost of a stored story.
const duplicateSimilarity = 0.92

// Fetcher saves new posts from a Source into the story library.
type Fetcher struct {
	source    Source
	extractor LinkExtractor
	store     *library.Store[library.Story]
	notifier  notifications.Service
	delay     time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithLinkExtractor enables text extraction for link posts.
func WithLinkExtractor(extractor LinkExtractor) Option {
	return func(f *Fetcher) { f.extractor = extractor }
}

// WithPostDelay sets the pause between posts.
func WithPostDelay(delay time.Duration) Option {
	return func(f *Fetcher) { f.delay = delay }
}

// WithNotifier publishes a stories_fetched event after each poll round.
func WithNotifier(notifier notifications.Service) Option {
	return func(f *Fetcher) {
		if notifier != nil {
			f.notifier = notifier
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher returns a fetcher writing into store.
func NewFetcher(source Source, store *library.Store[library.Story], logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:   source,
		store:    store,
		notifier: notifications.NewService(nil),
		delay:    500 * time.Millisecond,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "stories"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchResult summarizes one subreddit fetch.
type FetchResult struct {
	Subreddit string   `json:"subreddit"`
	Saved     []string `json:"saved"`
	Skipped   int      `json:"skipped"`
}

// Fetch reads one listing and stores the new posts.
func (f *Fetcher) Fetch(ctx context.Context, subreddit string) (FetchResult, error) {
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	result := FetchResult{Subreddit: subreddit}
	if subreddit == "" {
		return result, services.Wrap(services.ErrValidation, "stories", "fetch", "subreddit is empty", nil)
	}
	logger := logging.WithContext(ctx, f.logger).With(logging.String("subreddit", subreddit))

	posts, err := f.source.Listing(ctx, subreddit)
	if err != nil {
		return result, err
	}
	known, err := f.loadKnown()
	if err != nil {
		return result, err
	}
	logger.Info("fetched listing", logging.Int("posts", len(posts)))

	for i, post := range posts {
		if i > 0 {
			if err := sleep(ctx, f.delay); err != nil {
				return result, err
			}
		}
		content := f.content(ctx, logger, post)
		story := library.Story{
			Title:       post.Title,
			URL:         post.URL,
			Subreddit:   subreddit,
			Timestamp:   post.Created.Format("2006-01-02T15:04:05"),
			Score:       strconv.Itoa(post.Score),
			Author:      post.Author,
			NumComments: strconv.Itoa(post.NumComments),
			Content:     content,
			ScrapeDate:  f.now().Format("2006-01-02T15:04:05.000000"),
		}
		reason := known.duplicate(story)
		if reason == "" && story.Validate() != nil {
			reason = "no text"
		}
		if reason != "" {
			result.Skipped++
			logger.Debug("skipping post", logging.String("title", post.Title), logging.String("reason", reason))
			continue
		}
		name, err := f.save(i, story)
		if err != nil {
			return result, err
		}
		known.add(story)
		result.Saved = append(result.Saved, name)
		logger.Info("saved story",
			logging.String("story", name),
			logging.String("title", story.Title),
			logging.String("author", story.Author),
			logging.Int("score", post.Score),
		)
	}
	logger.Info("fetch complete", logging.Int("saved", len(result.Saved)), logging.Int("skipped", result.Skipped))
	return result, nil
}

// Poll fetches every subreddit, then waits interval, until ctx ends.
// Failures of one subreddit are logged and do not stop the round.
func (f *Fetcher) Poll(ctx context.Context, subreddits []string, interval time.Duration) error {
	if interval <= 0 {
		return services.Wrap(services.ErrValidation, "stories", "poll", "interval must be positive", nil)
	}
	logger := logging.WithContext(ctx, f.logger)
	logger.Info("polling subreddits",
		logging.String("subreddits", strings.Join(subreddits, ",")),
		logging.Duration("interval", interval),
	)
	for {
		saved := 0
		for _, subreddit := range subreddits {
			result, err := f.Fetch(ctx, subreddit)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				logging.WarnWithContext(logger, "subreddit fetch failed", "stories_fetch_failed",
					logging.String("subreddit", subreddit),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check reddit reachability and reddit.user_agent"),
					logging.String(logging.FieldImpact, "no new stories from this subreddit this round"),
				)
				continue
			}
			saved += len(result.Saved)
		}
		if saved > 0 {
			if err := f.notifier.Publish(ctx, notifications.EventStoriesFetched, notifications.Payload{"count": saved}); err != nil {
				logger.Debug("stories notification failed", logging.Error(err))
			}
		}
		if err := sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

func (f *Fetcher) content(ctx context.Context, logger *slog.Logger, post Post) string {
	if post.SelfText != "" {
		return post.SelfText
	}
	if post.LinkURL == "" {
		return ""
	}
	if f.extractor != nil {
		text, err := f.extractor.Extract(ctx, post.LinkURL)
		if err == nil {
			return text
		}
		logging.WarnWithContext(logger, "link extraction failed", "stories_link_extract_failed",
			logging.String("url", post.LinkURL),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the linked site may block scrapers"),
			logging.String(logging.FieldImpact, "story saved with the link as its text"),
		)
	}
	return "Link post: " + post.LinkURL
}

func (f *Fetcher) save(index int, story library.Story) (string, error) {
	base := fmt.Sprintf("%d_%s", index, f.now().Format("2006-01-02-150405"))
	name := base
	for n := 2; ; n++ {
		_, err := f.store.Get(name)
		if errors.Is(err, services.ErrNotFound) {
			break
		}
		name = fmt.Sprintf("%s-%d", base, n)
	}
	return f.store.Put(name, story)
}

type knownStories struct {
	urls         map[string]struct{}
	fingerprints []*textutil.Fingerprint
}

func (f *Fetcher) loadKnown() (*knownStories, error) {
	entries, err := f.store.List()
	if err != nil {
		return nil, err
	}
	known := &knownStories{urls: make(map[string]struct{}, len(entries))}
	for _, entry := range entries {
		known.add(entry.Record)
	}
	return known, nil
}

func (k *knownStories) add(story library.Story) {
	if story.URL != "" {
		k.urls[story.URL] = struct{}{}
	}
	if fp := textutil.NewFingerprint(story.Content); fp != nil {
		k.fingerprints = append(k.fingerprints, fp)
	}
}

func (k *knownStories) duplicate(story library.Story) string {
	if _, ok := k.urls[story.URL]; ok && story.URL != "" {
		return "url already stored"
	}
	fp := textutil.NewFingerprint(story.Content)
	if fp.Terms() < 5 {
		return ""
	}
	for _, other := range k.fingerprints {
		if fp.Similarity(other) >= duplicateSimilarity {
			return "text matches a stored story"
		}
	}
	return ""
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
