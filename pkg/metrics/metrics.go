package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK       = "ok"
	ResultNotReady = "not_ready"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

var (
	Reports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memereport_reports_total",
		Help: "Report requests by outcome.",
	}, []string{"result"})

	RenderSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "memereport_report_render_seconds",
		Help:    "Time spent rendering a report, image fetches included.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
	})

	ImageFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memereport_image_fetch_failures_total",
		Help: "Images that could not be downloaded or decoded.",
	})

	ScrapedPosts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memereport_scraped_posts_total",
		Help: "Posts written by the scraper.",
	})

	BotCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memereport_bot_commands_total",
		Help: "Chat commands received.",
	}, []string{"command"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
