package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memereport/pkg/post"
)

type fakeReddit struct {
	tokens   int32
	listings int32
	children []Listed
}

func (f *fakeReddit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/access_token":
		id, secret, ok := r.BasicAuth()
		if !ok || id != "client" || secret != "s3cret" || r.FormValue("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt32(&f.tokens, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tkn", "expires_in": 3600})

	case r.Method == http.MethodGet && r.URL.Path == "/r/memes/top":
		q := r.URL.Query()
		if r.Header.Get("Authorization") != "Bearer tkn" || q.Get("t") != "day" || q.Get("limit") != "20" || q.Get("raw_json") != "1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		atomic.AddInt32(&f.listings, 1)
		var l listing
		for _, c := range f.children {
			l.Data.Children = append(l.Data.Children, struct {
				Data Listed `json:"data"`
			}{c})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(l)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(srv *httptest.Server, secret string) *Client {
	return NewClient(ClientConfig{
		ClientID:     "client",
		ClientSecret: secret,
		UserAgent:    "test-agent/0.1",
		AuthURL:      srv.URL,
		APIURL:       srv.URL,
		Timeout:      time.Second,
	})
}

func preview(url string) *Preview {
	p := &Preview{}
	p.Images = append(p.Images, struct {
		Source struct {
			URL string `json:"url"`
		} `json:"source"`
	}{})
	p.Images[0].Source.URL = url
	return p
}

type memStore struct {
	saved []*post.Post
	err   error
}

func (m *memStore) ByDate(_ context.Context, date string) ([]*post.Post, error) {
	return m.saved, m.err
}

func (m *memStore) SaveAll(_ context.Context, posts []*post.Post) error {
	if m.err != nil {
		return m.err
	}
	m.saved = posts
	return nil
}

func TestClientTop(t *testing.T) {
	fake := &fakeReddit{children: []Listed{{Title: "one", Author: "a"}, {Title: "two", Author: "b"}}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(srv, "s3cret")
	defer c.Close()

	for i := 0; i < 2; i++ {
		listed, err := c.Top(context.Background(), "memes", 20)
		require.Nil(t, err)
		assert.Len(t, listed, 2)
		assert.Equal(t, "one", listed[0].Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.tokens), "token must be reused")
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.listings))
}

func TestClientTokenRejected(t *testing.T) {
	srv := httptest.NewServer(&fakeReddit{})
	defer srv.Close()

	c := newTestClient(srv, "wrong")
	defer c.Close()

	_, err := c.Top(context.Background(), "memes", 20)
	assert.NotNil(t, err)
}

func TestNormalize(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	base := Listed{
		Title:               "title",
		Author:              "someone",
		CreatedUTC:          float64(created.Unix()),
		Ups:                 1200,
		TotalAwardsReceived: 3,
	}

	t.Run("plain image", func(t *testing.T) {
		l := base
		l.URL = "https://i.redd.it/abc.jpeg"
		p, _ := normalize(l)
		require.NotNil(t, p)
		assert.Equal(t, l.URL, p.URL)
		assert.Empty(t, p.MediaType)
		assert.Equal(t, "2024-03-01T08:30:00Z", p.CreatedAt)
		assert.Equal(t, 1200, p.Upvotes)
		assert.Equal(t, 3, p.Awards)
	})

	t.Run("gif", func(t *testing.T) {
		l := base
		l.URL = "https://i.imgur.com/abc.gifv"
		l.Thumbnail = "https://b.thumbs.redditmedia.com/abc.jpg"
		p, _ := normalize(l)
		require.NotNil(t, p)
		assert.Equal(t, post.MediaGif, p.MediaType)
		assert.Equal(t, l.Thumbnail, p.URL)
		assert.Equal(t, l.URL, p.GifURL)
	})

	t.Run("video", func(t *testing.T) {
		l := base
		l.URL = "https://v.redd.it/xyz"
		l.Preview = preview("https://preview.redd.it/xyz.png?width=640&amp;s=abc")
		p, _ := normalize(l)
		require.NotNil(t, p)
		assert.Equal(t, post.MediaVideo, p.MediaType)
		assert.Equal(t, "https://preview.redd.it/xyz.png?width=640&s=abc", p.URL)
		assert.Equal(t, l.URL, p.VideoURL)
	})

	t.Run("video without preview", func(t *testing.T) {
		l := base
		l.URL = "https://v.redd.it/xyz"
		p, reason := normalize(l)
		assert.Nil(t, p)
		assert.NotEmpty(t, reason)
	})

	t.Run("deleted author", func(t *testing.T) {
		l := base
		l.URL = "https://i.redd.it/abc.png"
		l.Author = "[deleted]"
		p, _ := normalize(l)
		assert.Nil(t, p)
	})
}

func TestScrape(t *testing.T) {
	fake := &fakeReddit{children: []Listed{
		{Title: "first", Author: "a", URL: "https://i.redd.it/1.jpg"},
		{Title: "gone", Author: "[deleted]", URL: "https://i.redd.it/2.jpg"},
		{Title: "gif", Author: "c", URL: "https://i.redd.it/3.gif", Thumbnail: "https://thumbs/3.jpg"},
		{Title: "video", Author: "d", URL: "https://v.redd.it/4"},
		{Title: "last", Author: "e", URL: "https://i.redd.it/5.png"},
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(srv, "s3cret")
	defer c.Close()

	store := &memStore{}
	s := NewScraper(c, store, "memes", 20, zap.NewNop().Sugar())
	s.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	saved, err := s.Scrape(context.Background())
	require.Nil(t, err)
	assert.Equal(t, 3, saved)

	require.Len(t, store.saved, 3)
	for i, p := range store.saved {
		assert.Equal(t, i, p.Rank, "ranks are contiguous")
		assert.Equal(t, "2024-03-01", p.Date)
		assert.Nil(t, p.Validate())
	}
	assert.Equal(t, "first", store.saved[0].Title)
	assert.Equal(t, "gif", store.saved[1].Title)
	assert.Equal(t, "last", store.saved[2].Title)
}

func TestScrapeStoreFailure(t *testing.T) {
	srv := httptest.NewServer(&fakeReddit{children: []Listed{{Title: "x", Author: "a", URL: "https://i.redd.it/1.jpg"}}})
	defer srv.Close()

	c := newTestClient(srv, "s3cret")
	defer c.Close()

	store := &memStore{err: errors.New("write conflict")}
	_, err := NewScraper(c, store, "memes", 20, zap.NewNop().Sugar()).Scrape(context.Background())
	assert.NotNil(t, err)
}
