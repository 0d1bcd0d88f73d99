package report

//go:generate mockgen -source=interfaces.go -destination=mock_interfaces.go -package=report

import (
	"context"

	"memereport/pkg/imagefetch"
	"memereport/pkg/post"
)

type (
	ImageFetcher interface {
		Fetch(ctx context.Context, url string) (*imagefetch.Image, bool)
	}

	RecordReader interface {
		ByDate(ctx context.Context, date string) ([]*post.Post, error)
	}

	DocumentRenderer interface {
		Render(ctx context.Context, posts []*post.Post) (*Document, error)
	}
)
