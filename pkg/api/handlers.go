package api

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	. "memereport/pkg/common"
	"memereport/pkg/logger"
	"memereport/pkg/post"
	"memereport/pkg/report"
)

type (
	PostReader interface {
		ByDate(ctx context.Context, date string) ([]*post.Post, error)
	}
	ReportGetter interface {
		Get(ctx context.Context, date string) (*report.Report, error)
	}
	Scraper interface {
		Scrape(ctx context.Context) (int, error)
	}
)

type Handler struct {
	PostRepo PostReader
	Reports  ReportGetter
	Scraper  Scraper
}

func NewHandler(posts PostReader, reports ReportGetter, scraper Scraper) *Handler {
	return &Handler{
		PostRepo: posts,
		Reports:  reports,
		Scraper:  scraper,
	}
}

// Register mounts the data routes on the (authenticated) /api subrouter.
func (h *Handler) Register(api *mux.Router) {
	api.HandleFunc("/posts/{date}", h.PostsByDate).Methods("GET")
	api.HandleFunc("/reports/{date}", h.Report).Methods("GET")
	api.HandleFunc("/scrape", h.Scrape).Methods("POST")
}

type scrapeResp struct {
	Message string `json:"message"`
	Saved   int    `json:"saved"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) PostsByDate(w http.ResponseWriter, r *http.Request) {
	date, ok := dateVar(w, r)
	if !ok {
		return
	}

	posts, err := h.PostRepo.ByDate(r.Context(), date)
	if err != nil {
		logger.Log(r.Context()).Errorf("api: can't load posts for %s: %v", date, err)
		WriteMsg(w, "failed loading posts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, posts)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	date, ok := dateVar(w, r)
	if !ok {
		return
	}

	rep, err := h.Reports.Get(r.Context(), date)
	switch {
	case errors.Is(err, report.ErrNotReady):
		WriteMsg(w, "no records for date yet", http.StatusNotFound)
		return
	case errors.Is(err, post.ErrInvalid):
		logger.Log(r.Context()).Errorf("api: stored records can't be shown: %v", err)
		WriteMsg(w, "stored records are invalid", http.StatusUnprocessableEntity)
		return
	case err != nil:
		logger.Log(r.Context()).Errorf("api: report for %s failed: %v", date, err)
		WriteMsg(w, "failed generating report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", rep.ContentType)
	w.Header().Set("Content-Disposition", rep.Disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.Body)))
	if _, err := w.Write(rep.Body); err != nil {
		logger.Log(r.Context()).Errorf("api: failed writing report: %v", err)
	}
}

func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	saved, err := h.Scraper.Scrape(r.Context())
	if err != nil {
		logger.Log(r.Context()).Errorf("api: scrape failed: %v", err)
		WriteMsg(w, "scrape failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, scrapeResp{Message: "scrape completed", Saved: saved})
}

func dateVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse(post.DateLayout, date); err != nil {
		WriteMsg(w, "date must look like 2006-01-02", http.StatusBadRequest)
		return "", false
	}
	return date, true
}
