package post

import (
	"errors"
	"fmt"
)

// DateLayout is the partition key format: one day's records share one date.
const DateLayout = "2006-01-02"

type MediaType string

const (
	MediaNone  MediaType = "none"
	MediaGif   MediaType = "gif"
	MediaVideo MediaType = "video"
)

var ErrInvalid = errors.New("post: invalid record")

// Post is one ranked forum post for a given day.
type Post struct {
	Date string `json:"date" bson:"date"`
	Rank int    `json:"rank" bson:"rank"`

	Title     string `json:"title" bson:"title"`
	Author    string `json:"author" bson:"author"`
	CreatedAt string `json:"created_at" bson:"created_at"`
	Upvotes   int    `json:"upvotes" bson:"upvotes"`
	Awards    int    `json:"awards" bson:"awards"`

	// URL always points to a displayable image. For gif and video posts
	// it's the thumbnail/preview, and the real link is in GifURL/VideoURL.
	URL       string    `json:"url" bson:"url"`
	MediaType MediaType `json:"media_type,omitempty" bson:"media_type,omitempty"`
	GifURL    string    `json:"gif_url,omitempty" bson:"gif_url,omitempty"`
	VideoURL  string    `json:"video_url,omitempty" bson:"video_url,omitempty"`
}

// LinkText is the link shown to readers, never used as an image source.
func (p *Post) LinkText() string {
	switch p.MediaType {
	case MediaVideo:
		return p.VideoURL
	case MediaGif:
		return p.GifURL
	default:
		return p.URL
	}
}

func (p *Post) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil post", ErrInvalid)
	}
	required := []struct {
		name, value string
	}{
		{"date", p.Date},
		{"title", p.Title},
		{"author", p.Author},
		{"created_at", p.CreatedAt},
		{"url", p.URL},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: rank %d has no %s", ErrInvalid, p.Rank, f.name)
		}
	}
	if p.Rank < 0 {
		return fmt.Errorf("%w: negative rank %d", ErrInvalid, p.Rank)
	}

	switch p.MediaType {
	case "", MediaNone:
	case MediaGif:
		if p.GifURL == "" {
			return fmt.Errorf("%w: rank %d is a gif without gif_url", ErrInvalid, p.Rank)
		}
	case MediaVideo:
		if p.VideoURL == "" {
			return fmt.Errorf("%w: rank %d is a video without video_url", ErrInvalid, p.Rank)
		}
	default:
		return fmt.Errorf("%w: rank %d has unknown media type %q", ErrInvalid, p.Rank, p.MediaType)
	}
	return nil
}
