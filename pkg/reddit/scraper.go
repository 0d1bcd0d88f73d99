package reddit

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"memereport/pkg/metrics"
	"memereport/pkg/post"
)

const deletedAuthor = "[deleted]"

var imageExtensions = []string{".png", ".jpeg", ".jpg"}

type Lister interface {
	Top(ctx context.Context, subreddit string, limit int) ([]Listed, error)
}

type Scraper struct {
	Client    Lister
	Store     post.Store
	Subreddit string
	Limit     int
	Now       func() time.Time
	Log       *zap.SugaredLogger
}

func NewScraper(client Lister, store post.Store, subreddit string, limit int, log *zap.SugaredLogger) *Scraper {
	return &Scraper{
		Client:    client,
		Store:     store,
		Subreddit: subreddit,
		Limit:     limit,
		Now:       time.Now,
		Log:       log,
	}
}

// Scrape stores today's top posts and returns how many were saved. Running
// it again the same day overwrites the records rank by rank.
func (s *Scraper) Scrape(ctx context.Context) (int, error) {
	listed, err := s.Client.Top(ctx, s.Subreddit, s.Limit)
	if err != nil {
		return 0, fmt.Errorf("reddit/scraper: %w", err)
	}

	date := s.Now().Format(post.DateLayout)
	posts := make([]*post.Post, 0, len(listed))
	for _, l := range listed {
		p, reason := normalize(l)
		if p == nil {
			s.Log.Infow("skipping post", "title", l.Title, "reason", reason)
			continue
		}
		p.Date = date
		p.Rank = len(posts)
		posts = append(posts, p)
	}

	if err := s.Store.SaveAll(ctx, posts); err != nil {
		return 0, fmt.Errorf("reddit/scraper: %w", err)
	}
	metrics.ScrapedPosts.Add(float64(len(posts)))
	s.Log.Infow("scrape finished", "subreddit", s.Subreddit, "listed", len(listed), "saved", len(posts), "date", date)

	return len(posts), nil
}

// normalize picks the image source and display link for a listing entry.
// A nil post comes with the reason it was dropped.
func normalize(l Listed) (*post.Post, string) {
	if l.Author == "" || l.Author == deletedAuthor {
		return nil, "author is gone"
	}

	p := &post.Post{
		Title:     l.Title,
		Author:    l.Author,
		CreatedAt: time.Unix(int64(l.CreatedUTC), 0).UTC().Format(time.RFC3339),
		Upvotes:   l.Ups,
		Awards:    l.TotalAwardsReceived,
	}

	switch {
	case strings.Contains(l.URL, ".gif"):
		p.MediaType = post.MediaGif
		p.URL = l.Thumbnail
		if p.URL == "" {
			p.URL = l.URL
		}
		p.GifURL = l.URL
	case lo.ContainsBy(imageExtensions, func(ext string) bool { return strings.Contains(l.URL, ext) }):
		p.URL = l.URL
	default:
		if l.Preview == nil || len(l.Preview.Images) == 0 || l.Preview.Images[0].Source.URL == "" {
			return nil, "no preview image"
		}
		p.MediaType = post.MediaVideo
		p.URL = html.UnescapeString(l.Preview.Images[0].Source.URL)
		p.VideoURL = l.URL
	}

	return p, ""
}
