package stories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"storyreel/internal/services"
	"storyreel/internal/services/httpretry"
)

// Post is one listing entry.
type Post struct {
	Title       string
	URL         string
	Subreddit   string
	Author      string
	Created     time.Time
	Score       int
	NumComments int
	SelfText    string
	LinkURL     string
}

// Source lists posts of a subreddit.
type Source interface {
	Listing(ctx context.Context, subreddit string) ([]Post, error)
}

// HTTPConfig holds what both sources need to reach reddit.
type HTTPConfig struct {
	BaseURL   string
	Listing   string
	Limit     int
	UserAgent string
	Client    *http.Client
}

func (c HTTPConfig) normalized() HTTPConfig {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "https://www.reddit.com"
	}
	if c.Listing == "" {
		c.Listing = "rising"
	}
	if c.Limit <= 0 {
		c.Limit = 10
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 20 * time.Second}
	}
	return c
}

func (c HTTPConfig) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, httpretry.NewStatusError(resp, body)
	}
	return body, nil
}

// JSONSource reads the reddit JSON listing API.
type JSONSource struct {
	cfg HTTPConfig
}

// NewJSONSource returns a JSON API source.
func NewJSONSource(cfg HTTPConfig) *JSONSource {
	return &JSONSource{cfg: cfg.normalized()}
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				Permalink   string  `json:"permalink"`
				Author      string  `json:"author"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				SelfText    string  `json:"selftext"`
				URL         string  `json:"url"`
				IsSelf      bool    `json:"is_self"`
				Stickied    bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Listing fetches /r/<subreddit>/<listing>.json.
func (s *JSONSource) Listing(ctx context.Context, subreddit string) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1",
		s.cfg.BaseURL, url.PathEscape(subreddit), s.cfg.Listing, s.cfg.Limit)
	body, err := s.cfg.get(ctx, endpoint)
	if err != nil {
		return nil, services.WrapNetwork("stories", "listing r/"+subreddit, err)
	}
	var listing listingResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "stories", "listing r/"+subreddit, "decode response", err)
	}
	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		if d.Stickied {
			continue
		}
		post := Post{
			Title:       strings.TrimSpace(d.Title),
			URL:         "https://reddit.com" + d.Permalink,
			Subreddit:   subreddit,
			Author:      d.Author,
			Created:     time.Unix(int64(d.CreatedUTC), 0).UTC(),
			Score:       d.Score,
			NumComments: d.NumComments,
			SelfText:    strings.TrimSpace(d.SelfText),
		}
		if !d.IsSelf {
			post.LinkURL = d.URL
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// FeedSource reads the subreddit RSS feed. Feeds carry no score or comment
// counts.
type FeedSource struct {
	cfg    HTTPConfig
	parser *gofeed.Parser
}

// NewFeedSource returns an RSS source.
func NewFeedSource(cfg HTTPConfig) *FeedSource {
	return &FeedSource{cfg: cfg.normalized(), parser: gofeed.NewParser()}
}

// Listing fetches /r/<subreddit>/<listing>/.rss.
func (s *FeedSource) Listing(ctx context.Context, subreddit string) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/r/%s/%s/.rss?limit=%d", s.cfg.BaseURL, url.PathEscape(subreddit), s.cfg.Listing, s.cfg.Limit)
	body, err := s.cfg.get(ctx, endpoint)
	if err != nil {
		return nil, services.WrapNetwork("stories", "feed r/"+subreddit, err)
	}
	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "stories", "feed r/"+subreddit, "parse feed", err)
	}
	count := min(len(feed.Items), s.cfg.Limit)
	posts := make([]Post, 0, count)
	for _, item := range feed.Items[:count] {
		post := Post{
			Title:     strings.TrimSpace(item.Title),
			URL:       item.Link,
			Subreddit: subreddit,
		}
		if item.Author != nil {
			post.Author = strings.TrimPrefix(item.Author.Name, "/u/")
		}
		if item.PublishedParsed != nil {
			post.Created = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			post.Created = item.UpdatedParsed.UTC()
		}
		content := item.Content
		if content == "" {
			content = item.Description
		}
		post.SelfText = HTMLToText(content, item.Link)
		posts = append(posts, post)
	}
	return posts, nil
}

// HTMLToText reduces an HTML fragment to its readable text.
func HTMLToText(fragment, pageURL string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		base = &url.URL{}
	}
	doc := "<html><body><article>" + fragment + "</article></body></html>"
	if article, err := readability.FromReader(strings.NewReader(doc), base); err == nil {
		if text := cleanText(article.TextContent); text != "" {
			return text
		}
	}
	text := breakPattern.ReplaceAllString(fragment, "\n")
	return cleanText(html.UnescapeString(tagPattern.ReplaceAllString(text, "")))
}

var (
	breakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</li>`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
)

// LinkExtractor turns a linked page into story text.
type LinkExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// ReadabilityExtractor fetches a page and keeps its main article text.
type ReadabilityExtractor struct {
	cfg HTTPConfig
}

// NewReadabilityExtractor returns an extractor using cfg's client and agent.
func NewReadabilityExtractor(cfg HTTPConfig) *ReadabilityExtractor {
	return &ReadabilityExtractor{cfg: cfg.normalized()}
}

// Extract implements LinkExtractor.
func (e *ReadabilityExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" {
		return "", services.Wrap(services.ErrValidation, "stories", "extract", "invalid url "+strconv.Quote(pageURL), err)
	}
	body, err := e.cfg.get(ctx, pageURL)
	if err != nil {
		return "", services.WrapNetwork("stories", "extract "+parsed.Host, err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "stories", "extract "+parsed.Host, "readability", err)
	}
	text := cleanText(article.TextContent)
	if text == "" {
		return "", services.Wrap(services.ErrResourceExhausted, "stories", "extract "+parsed.Host, "no readable text", nil)
	}
	return text, nil
}

// cleanText collapses runs of blank lines and trims each line.
func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
