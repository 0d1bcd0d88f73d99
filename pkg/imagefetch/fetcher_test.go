package imagefetch

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"resty.dev/v3"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.Nil(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	picture := pngBytes(t, 64, 32)

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(picture)
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/garbage.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not an image</html>"))
	})
	mux.HandleFunc("/slow.png", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(200*time.Millisecond, zap.NewNop().Sugar())
	defer f.Close()
	ctx := context.Background()

	t.Run("decodes and re-encodes as jpeg", func(t *testing.T) {
		img, ok := f.Fetch(ctx, srv.URL+"/ok.png")
		require.True(t, ok)
		assert.Equal(t, 64, img.Width)
		assert.Equal(t, 32, img.Height)

		cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
		require.Nil(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 64, cfg.Width)
	})

	for _, path := range []string{"/missing.png", "/garbage.png", "/slow.png"} {
		t.Run("no image for "+path, func(t *testing.T) {
			img, ok := f.Fetch(ctx, srv.URL+path)
			assert.False(t, ok)
			assert.Nil(t, img)
		})
	}

	t.Run("no image for unreachable host", func(t *testing.T) {
		_, ok := f.Fetch(ctx, "http://127.0.0.1:1/x.png")
		assert.False(t, ok)
	})
}

func TestFetchBodyLimit(t *testing.T) {
	picture := pngBytes(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(picture)
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, zap.NewNop().Sugar())
	defer f.Close()
	assert.Equal(t, int64(maxBodyBytes), f.client.ResponseBodyLimit())

	f.client.SetResponseBodyLimit(int64(len(picture) / 2))
	_, err := f.fetch(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, resty.ErrReadExceedsThresholdLimit), "got %v", err)

	img, ok := f.Fetch(context.Background(), srv.URL)
	assert.False(t, ok)
	assert.Nil(t, img)
}

// withDimensions rewrites the IHDR of a png so it claims w x h pixels.
func withDimensions(t *testing.T, raw []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), raw...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestNormalize(t *testing.T) {
	img, err := Normalize(pngBytes(t, 10, 40))
	require.Nil(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.Nil(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 40), decoded.Bounds())

	_, err = Normalize(nil)
	assert.NotNil(t, err)
}

func TestNormalizeRefusesHugeImages(t *testing.T) {
	small := pngBytes(t, 8, 8)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(withDimensions(t, small, 30000, 30000)))
	require.Nil(t, err)
	assert.Equal(t, 30000, cfg.Width)

	_, err = Normalize(withDimensions(t, small, 30000, 30000))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "too large: 30000x30000")

	_, err = Normalize(withDimensions(t, small, 8, 8))
	assert.Nil(t, err)
}
