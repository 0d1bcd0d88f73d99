package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/sync/errgroup"

	"memereport/pkg/imagefetch"
	"memereport/pkg/post"
)

// Layout in points on a US Letter page, y measured from the top edge.
const (
	pageHeight = 792.0

	marginLeft    = 50.0
	marginTop     = 50.0
	bannerX       = 200.0
	bannerAdvance = 35.0

	// A page break happens once less than this is left below the cursor.
	minContent = 200.0

	titleAdvance    = 20.0
	bylineAdvance   = 15.0
	linkAdvance     = 20.0
	mediaLabelRaise = 5.0
	imageHeight     = 280.0
	noImageAdvance  = 15.0
	postSpacing     = 20.0

	defaultWorkers = 4

	fontFamily = "Go"
)

type font struct {
	family string
	style  string
	size   float64
}

var (
	bannerFont = font{fontFamily, "B", 16}
	bodyFont   = font{fontFamily, "", 12}
	titleFont  = font{fontFamily, "B", 14}
	bylineFont = font{fontFamily, "I", 12}
	linkFont   = font{fontFamily, "I", 10}
)

// substitutes stand in for byline symbols the Go fonts don't draw.
var substitutes = map[rune]rune{
	'⬆': '↑',
	'⭐': '*',
}

// Block is where one post landed in the document.
type Block struct {
	Rank  int
	Page  int
	Top   float64
	Link  string
	Image bool
}

// Layout is a trace of what the renderer drew.
type Layout struct {
	Pages      int
	Banners    int
	BannerPage int
	Images     int
	Blocks     []Block
}

type Document struct {
	Body   []byte
	Layout Layout
}

type Renderer struct {
	Fetcher ImageFetcher
	Title   string
	Workers int
	Log     *zap.SugaredLogger
}

func NewRenderer(f ImageFetcher, subreddit string, workers int, log *zap.SugaredLogger) *Renderer {
	return &Renderer{
		Fetcher: f,
		Title:   fmt.Sprintf("Top r/%s Posts", subreddit),
		Workers: workers,
		Log:     log,
	}
}

// Render lays posts out in the given order. Images are fetched up front by
// a bounded pool, drawing itself is sequential.
func (r *Renderer) Render(ctx context.Context, posts []*post.Post) (*Document, error) {
	images := r.prefetch(ctx, posts)

	face, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("report/renderer: bad embedded font: %w", err)
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", goitalic.TTF)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(r.Title, true)
	stamp := documentDate(posts)
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)

	w := &writer{
		pdf:    pdf,
		glyphs: &glyphs{face: face},
		log:    r.Log,
	}
	w.banner(r.Title)
	for i, p := range posts {
		w.post(i, p, images[i])
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("report/renderer: failed drawing: %w", err)
	}
	w.layout.Pages = pdf.PageCount()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report/renderer: failed writing pdf: %w", err)
	}
	return &Document{Body: buf.Bytes(), Layout: w.layout}, nil
}

func (r *Renderer) prefetch(ctx context.Context, posts []*post.Post) []*imagefetch.Image {
	images := make([]*imagefetch.Image, len(posts))

	workers := r.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range posts {
		g.Go(func() error {
			if img, ok := r.Fetcher.Fetch(ctx, p.URL); ok {
				images[i] = img
			}
			return nil
		})
	}
	_ = g.Wait()

	return images
}

// documentDate pins the PDF timestamps; together with the sorted catalog
// this makes equal input give equal bytes.
func documentDate(posts []*post.Post) time.Time {
	if len(posts) > 0 {
		if d, err := time.Parse(post.DateLayout, posts[0].Date); err == nil {
			return d
		}
	}
	return time.Unix(0, 0).UTC()
}

// needsBreak reports whether the post with the given 1-indexed display rank
// starts a new page. Every odd rank after the first breaks unconditionally.
func needsBreak(y float64, displayRank int) bool {
	return pageHeight-y < minContent || (displayRank%2 == 1 && displayRank > 1)
}

// writer holds the cursor: current page, vertical position and font.
type writer struct {
	pdf    *fpdf.Fpdf
	glyphs *glyphs
	log    *zap.SugaredLogger

	y      float64
	font   font
	layout Layout
}

func (w *writer) setFont(f font) {
	w.font = f
	w.pdf.SetFont(f.family, f.style, f.size)
}

func (w *writer) text(x float64, s string) {
	w.pdf.Text(x, w.y, w.glyphs.printable(s))
}

func (w *writer) newPage() {
	w.pdf.AddPage()
	w.y = marginTop
	w.setFont(bodyFont)
}

func (w *writer) banner(title string) {
	w.newPage()
	w.setFont(bannerFont)
	w.text(bannerX, title)
	w.y += bannerAdvance
	w.layout.Banners++
	w.layout.BannerPage = w.pdf.PageNo()
}

func (w *writer) post(i int, p *post.Post, img *imagefetch.Image) {
	displayRank := i + 1
	if needsBreak(w.y, displayRank) {
		w.newPage()
	}

	block := Block{Rank: p.Rank, Page: w.pdf.PageNo(), Top: w.y, Link: p.LinkText()}

	w.setFont(titleFont)
	w.text(marginLeft, fmt.Sprintf("%d. %s", displayRank, p.Title))
	w.y += titleAdvance

	w.setFont(bylineFont)
	w.text(marginLeft, fmt.Sprintf("By %s on %s | ⬆ %d upvotes | ⭐ %d awards",
		p.Author, p.CreatedAt, p.Upvotes, p.Awards))
	w.y += bylineAdvance

	w.setFont(linkFont)
	w.pdf.SetTextColor(0, 0, 255)
	link := w.glyphs.printable(block.Link)
	w.pdf.Text(marginLeft, w.y, link)
	w.pdf.LinkString(marginLeft, w.y-linkFont.size, w.pdf.GetStringWidth(link), linkFont.size+2, block.Link)
	w.pdf.SetTextColor(0, 0, 0)
	w.y += linkAdvance

	if p.MediaType != "" {
		w.y -= mediaLabelRaise
		w.text(marginLeft, fmt.Sprintf("(%s)", p.MediaType))
		w.y += mediaLabelRaise
	}

	if w.image(i, img) {
		block.Image = true
		w.layout.Images++
		w.y += imageHeight
	} else {
		w.log.Debugw("drawing post without image", "rank", p.Rank, "url", p.URL)
		w.setFont(bylineFont)
		w.y += noImageAdvance
	}

	w.y += postSpacing
	w.layout.Blocks = append(w.layout.Blocks, block)
}

// image draws img scaled to imageHeight with its top edge at the cursor.
func (w *writer) image(i int, img *imagefetch.Image) bool {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return false
	}

	// An earlier drawing failure belongs to Render, not to this image.
	if w.pdf.Err() {
		return false
	}

	name := fmt.Sprintf("post-%d", i)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if w.pdf.Err() {
		w.log.Warnw("image rejected by pdf writer", "index", i, "error", w.pdf.Error())
		w.pdf.ClearError()
		return false
	}

	width := imageHeight / float64(img.Height) * float64(img.Width)
	w.pdf.ImageOptions(name, marginLeft, w.y, width, imageHeight, false, opts, 0, "")
	return true
}

// glyphs filters text down to what the embedded regular face can draw.
// fpdf's UTF-8 fonts only index the Basic Multilingual Plane.
type glyphs struct {
	face *sfnt.Font
	buf  sfnt.Buffer
}

func (g *glyphs) has(r rune) bool {
	if r > 0xFFFF {
		return false
	}
	idx, err := g.face.GlyphIndex(&g.buf, r)
	return err == nil && idx != 0
}

func (g *glyphs) printable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case g.has(r):
			return r
		case unicode.Is(unicode.Variation_Selector, r) || r == '\u200d':
			return -1
		}
		if sub, ok := substitutes[r]; ok && g.has(sub) {
			return sub
		}
		return '?'
	}, s)
}
