package stories

import (
	"context"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"storyreel/internal/services"
)

// APISource reads listings through the go-reddit read-only client. Unlike
// FeedSource it keeps scores and comment counts, and unlike JSONSource it
// lets the client library track reddit's rate-limit headers.
type APISource struct {
	cfg    HTTPConfig
	client *reddit.Client
}

// NewAPISource returns a read-only API source.
func NewAPISource(cfg HTTPConfig) (*APISource, error) {
	cfg = cfg.normalized()
	opts := []reddit.Opt{
		reddit.WithHTTPClient(cfg.Client),
		reddit.WithBaseURL(cfg.BaseURL),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, reddit.WithUserAgent(cfg.UserAgent))
	}
	client, err := reddit.NewReadonlyClient(opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "stories", "api client", "create reddit client", err)
	}
	return &APISource{cfg: cfg, client: client}, nil
}

// Listing implements Source.
func (s *APISource) Listing(ctx context.Context, subreddit string) ([]Post, error) {
	opts := &reddit.ListOptions{Limit: s.cfg.Limit}
	var (
		raw []*reddit.Post
		err error
	)
	switch s.cfg.Listing {
	case "hot":
		raw, _, err = s.client.Subreddit.HotPosts(ctx, subreddit, opts)
	case "new":
		raw, _, err = s.client.Subreddit.NewPosts(ctx, subreddit, opts)
	case "top":
		raw, _, err = s.client.Subreddit.TopPosts(ctx, subreddit, &reddit.ListPostOptions{ListOptions: *opts, Time: "day"})
	default:
		raw, _, err = s.client.Subreddit.RisingPosts(ctx, subreddit, opts)
	}
	if err != nil {
		return nil, services.WrapNetwork("stories", "api r/"+subreddit, err)
	}

	posts := make([]Post, 0, len(raw))
	for _, p := range raw {
		if p == nil || p.Stickied {
			continue
		}
		post := Post{
			Title:       strings.TrimSpace(p.Title),
			URL:         permalinkURL(p.Permalink),
			Subreddit:   subreddit,
			Author:      p.Author,
			Score:       p.Score,
			NumComments: p.NumberOfComments,
			SelfText:    strings.TrimSpace(p.Body),
		}
		if p.Created != nil {
			post.Created = p.Created.UTC()
		}
		if !p.IsSelfPost {
			post.LinkURL = p.URL
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func permalinkURL(permalink string) string {
	if strings.HasPrefix(permalink, "/") {
		return "https://reddit.com" + permalink
	}
	return permalink
}
