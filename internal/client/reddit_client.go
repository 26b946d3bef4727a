package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const redditBaseURL = "https://www.reddit.com"

// RedditPost is one entry from a subreddit listing
type RedditPost struct {
	ID         string  `json:"name"` // fullname, e.g. "t3_abc123"
	Subreddit  string  `json:"subreddit"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// PostedAt converts the listing's epoch timestamp
func (p RedditPost) PostedAt() time.Time {
	return time.Unix(int64(p.CreatedUTC), 0).UTC()
}

// RedditClient fetches public subreddit listings (no authentication)
type RedditClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewRedditClient creates a new Reddit listing client
func NewRedditClient() *RedditClient {
	return &RedditClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    redditBaseURL,
		userAgent:  "clipflow-ingest/1.0",
	}
}

// FetchNewPosts returns up to limit posts from r/<subreddit>/new
func (c *RedditClient) FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]RedditPost, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new.json?limit=%s",
		c.baseURL, url.PathEscape(subreddit), strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Reddit throttles the default Go user agent aggressively
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit listing error (status %d): %s", resp.StatusCode, string(body))
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data RedditPost `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("unmarshal listing: %w", err)
	}

	posts := make([]RedditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
