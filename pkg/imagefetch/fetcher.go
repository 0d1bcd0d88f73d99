// Package imagefetch downloads post images and normalizes them to JPEG.
//
// Fetching is best effort: any failure is logged and reported as "no image"
// so a single broken host never aborts a report.
package imagefetch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"resty.dev/v3"

	"memereport/pkg/metrics"
)

const (
	JPEGQuality = 85

	// Upper bounds for what a single post image may cost us.
	maxBodyBytes = 20 << 20
	maxPixels    = 40_000_000
)

type Image struct {
	Data   []byte
	Width  int
	Height int
}

type Fetcher struct {
	client *resty.Client
	log    *zap.SugaredLogger
}

func NewFetcher(timeout time.Duration, log *zap.SugaredLogger) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetResponseBodyLimit(maxBodyBytes).
		SetHeader("User-Agent", "memereport/1.0")
	return &Fetcher{
		client: client,
		log:    log,
	}
}

func (f *Fetcher) Close() error {
	return f.client.Close()
}

// Fetch never returns the underlying error: ok is false whenever there is
// nothing to draw.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Image, bool) {
	img, err := f.fetch(ctx, url)
	if err != nil {
		metrics.ImageFetchFailures.Inc()
		f.log.Warnw("image unavailable", "url", url, "error", err)
		return nil, false
	}
	return img, true
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*Image, error) {
	res, err := f.client.R().WithContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: download failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("imagefetch: download failed: status %d", res.StatusCode())
	}
	return Normalize(res.Bytes())
}

// Normalize decodes any supported format and re-encodes it as JPEG.
// Images over maxPixels are refused before any pixel data is decoded.
func Normalize(raw []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("imagefetch: decode failed: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("imagefetch: %s too large: %dx%d", format, cfg.Width, cfg.Height)
	}

	decoded, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imagefetch: decode failed: %w", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("imagefetch: empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("imagefetch: jpeg encode failed: %w", err)
	}

	return &Image{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
