package bot

//go:generate mockgen -source=interfaces.go -destination=mock_interfaces.go -package=bot

import (
	"context"

	"memereport/pkg/report"
)

type (
	Scraper interface {
		Scrape(ctx context.Context) (int, error)
	}

	Reports interface {
		Today(ctx context.Context) (*report.Report, error)
	}

	Messenger interface {
		SendMessage(ctx context.Context, chatID int64, text string) error
		SendDocument(ctx context.Context, chatID int64, filename, contentType string, data []byte) error
	}

	Deduper interface {
		Seen(updateID int64) (bool, error)
	}
)
