package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gomock "github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"memereport/pkg/post"
	"memereport/pkg/report"
)

type fixture struct {
	posts   *MockPostReader
	reports *MockReportGetter
	scraper *MockScraper
	router  *mux.Router
}

func newFixture(ctrl *gomock.Controller) *fixture {
	f := &fixture{
		posts:   NewMockPostReader(ctrl),
		reports: NewMockReportGetter(ctrl),
		scraper: NewMockScraper(ctrl),
		router:  mux.NewRouter(),
	}
	h := NewHandler(f.posts, f.reports, f.scraper)
	f.router.HandleFunc("/health", h.Health).Methods("GET")
	h.Register(f.router.PathPrefix("/api").Subrouter())
	return f
}

func (f *fixture) do(method, url string) *http.Response {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, url, nil))
	return w.Result()
}

func message(t *testing.T, resp *http.Response) string {
	var m struct {
		Message string `json:"message"`
	}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(&m))
	return m.Message
}

func TestHealth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resp := newFixture(ctrl).do("GET", "/health")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestPostsByDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("found", func(t *testing.T) {
		f := newFixture(ctrl)
		f.posts.EXPECT().ByDate(gomock.Any(), "2024-03-01").Return([]*post.Post{
			{Date: "2024-03-01", Rank: 0, Title: "first"},
			{Date: "2024-03-01", Rank: 1, Title: "second", MediaType: post.MediaGif, GifURL: "g"},
		}, nil)

		resp := f.do("GET", "/api/posts/2024-03-01")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got []*post.Post
		assert.Nil(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Len(t, got, 2)
		assert.Equal(t, post.MediaGif, got[1].MediaType)
	})

	t.Run("bad date", func(t *testing.T) {
		resp := newFixture(ctrl).do("GET", "/api/posts/yesterday")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(ctrl)
		f.posts.EXPECT().ByDate(gomock.Any(), "2024-03-01").Return(nil, errors.New("timeout"))
		assert.Equal(t, http.StatusInternalServerError, f.do("GET", "/api/posts/2024-03-01").StatusCode)
	})
}

func TestReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("pdf", func(t *testing.T) {
		f := newFixture(ctrl)
		f.reports.EXPECT().Get(gomock.Any(), "2024-03-01").Return(&report.Report{
			Date:        "2024-03-01",
			Body:        []byte("%PDF-1.3 body"),
			ContentType: report.ContentType,
			Disposition: report.Disposition,
			Filename:    report.Filename,
		}, nil)

		resp := f.do("GET", "/api/reports/2024-03-01")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, "inline; filename=reddit_memes.pdf", resp.Header.Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.3 body", string(body))
	})

	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: 3 of 20", report.ErrNotReady), http.StatusNotFound},
		{fmt.Errorf("report/service: %w", post.ErrInvalid), http.StatusUnprocessableEntity},
		{errors.New("mongo gone"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.err.Error(), func(t *testing.T) {
			f := newFixture(ctrl)
			f.reports.EXPECT().Get(gomock.Any(), "2024-03-01").Return(nil, c.err)

			resp := f.do("GET", "/api/reports/2024-03-01")
			assert.Equal(t, c.status, resp.StatusCode)
			if c.status == http.StatusNotFound {
				assert.Equal(t, "no records for date yet", message(t, resp))
			}
		})
	}
}

func TestScrape(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("ok", func(t *testing.T) {
		f := newFixture(ctrl)
		f.scraper.EXPECT().Scrape(gomock.Any()).Return(18, nil)

		resp := f.do("POST", "/api/scrape")
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"message":"scrape completed","saved":18}`, string(body))
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(ctrl)
		f.scraper.EXPECT().Scrape(gomock.Any()).Return(0, errors.New("rate limited"))
		assert.Equal(t, http.StatusInternalServerError, f.do("POST", "/api/scrape").StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		assert.Equal(t, http.StatusMethodNotAllowed, newFixture(ctrl).do("GET", "/api/scrape").StatusCode)
	})
}
