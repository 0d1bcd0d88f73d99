package report

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"memereport/pkg/metrics"
	"memereport/pkg/post"
)

const (
	ContentType = "application/pdf"
	Filename    = "reddit_memes.pdf"
	Disposition = "inline; filename=" + Filename

	DefaultExpected = 20
)

// ErrNotReady means the scrape for the date hasn't produced a full set yet.
var ErrNotReady = errors.New("report: records for the date are not ready")

type Report struct {
	Date        string
	Body        []byte
	ContentType string
	Disposition string
	Filename    string
}

// Base64 is the body in a text-safe envelope.
func (r *Report) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Body)
}

type Service struct {
	Store    RecordReader
	Renderer DocumentRenderer
	Expected int
	Now      func() time.Time
	Log      *zap.SugaredLogger
}

func NewService(store RecordReader, renderer DocumentRenderer, expected int, log *zap.SugaredLogger) *Service {
	if expected <= 0 {
		expected = DefaultExpected
	}
	return &Service{
		Store:    store,
		Renderer: renderer,
		Expected: expected,
		Now:      time.Now,
		Log:      log,
	}
}

func (s *Service) Today(ctx context.Context) (*Report, error) {
	return s.Get(ctx, s.Now().Format(post.DateLayout))
}

// Get renders the report for date. It returns ErrNotReady when fewer than
// Expected records exist, and an error wrapping post.ErrInvalid when a record
// can't be displayed.
func (s *Service) Get(ctx context.Context, date string) (*Report, error) {
	posts, err := s.Store.ByDate(ctx, date)
	if err != nil {
		metrics.Reports.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("report/service: failed reading posts for %s: %w", date, err)
	}

	if len(posts) == 0 || len(posts) < s.Expected {
		metrics.Reports.WithLabelValues(metrics.ResultNotReady).Inc()
		s.Log.Infow("report not ready", "date", date, "records", len(posts), "expected", s.Expected)
		return nil, fmt.Errorf("%w: %d of %d records for %s", ErrNotReady, len(posts), s.Expected, date)
	}

	for _, p := range posts {
		if err := p.Validate(); err != nil {
			metrics.Reports.WithLabelValues(metrics.ResultInvalid).Inc()
			return nil, fmt.Errorf("report/service: %w", err)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Rank < posts[j].Rank
	})

	start := time.Now()
	doc, err := s.Renderer.Render(ctx, posts)
	if err != nil {
		metrics.Reports.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("report/service: %w", err)
	}
	metrics.RenderSeconds.Observe(time.Since(start).Seconds())
	metrics.Reports.WithLabelValues(metrics.ResultOK).Inc()

	s.Log.Infow("report rendered",
		"date", date,
		"records", len(posts),
		"pages", doc.Layout.Pages,
		"images", doc.Layout.Images,
		"bytes", len(doc.Body),
	)

	return &Report{
		Date:        date,
		Body:        doc.Body,
		ContentType: ContentType,
		Disposition: Disposition,
		Filename:    Filename,
	}, nil
}
