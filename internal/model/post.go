package model

import "time"

// IngestedPost is one scraped subreddit entry
type IngestedPost struct {
	ID        string    `json:"id"` // platform fullname, e.g. "t3_abc123"
	Subreddit string    `json:"subreddit"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Permalink string    `json:"permalink"`
	Score     int       `json:"score"`
	PostedAt  time.Time `json:"postedAt"`
	ScrapedAt time.Time `json:"scrapedAt"`
}
