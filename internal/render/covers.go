package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunemap/internal/graph"
	"github.com/desertthunder/tunemap/internal/shared"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

const (
	maxCoverBytes = 8 << 20
	coverTimeout  = 10 * time.Second
)

// CoverSource returns the image for a cover URL. It never fails; unusable covers become a placeholder.
type CoverSource interface {
	Cover(ctx context.Context, url string) image.Image
}

// CoverLoader downloads and decodes album covers, caching each URL once.
type CoverLoader struct {
	client      *http.Client
	logger      *log.Logger
	placeholder image.Image

	mu    sync.RWMutex
	cache map[string]image.Image
	group singleflight.Group
}

// NewCoverLoader creates a [CoverLoader]. A nil client gets a 10 second timeout.
func NewCoverLoader(client *http.Client, logger *log.Logger) *CoverLoader {
	if client == nil {
		client = &http.Client{Timeout: coverTimeout}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CoverLoader{
		client:      client,
		logger:      logger,
		placeholder: Placeholder(300),
		cache:       make(map[string]image.Image),
	}
}

// Cover returns the decoded cover for url, or the placeholder if it cannot be fetched or decoded.
func (l *CoverLoader) Cover(ctx context.Context, url string) image.Image {
	if url == "" || url == graph.PlaceholderCover {
		return l.placeholder
	}

	l.mu.RLock()
	img, ok := l.cache[url]
	l.mu.RUnlock()
	if ok {
		return img
	}

	// The download outlives a cancelled caller so its result can still be cached for the next one.
	ch := l.group.DoChan(url, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout())
		defer cancel()

		img, err := l.fetch(fetchCtx, url)
		if err != nil {
			if transient(err) {
				return nil, err
			}
			l.logger.Warn("cover unavailable, using placeholder", "url", url, "error", err)
			img = l.placeholder
		}
		l.mu.Lock()
		l.cache[url] = img
		l.mu.Unlock()
		return img, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			l.logger.Warn("cover fetch failed, will retry", "url", url, "error", res.Err)
			return l.placeholder
		}
		return res.Val.(image.Image)
	case <-ctx.Done():
		return l.placeholder
	}
}

func (l *CoverLoader) timeout() time.Duration {
	if l.client.Timeout > 0 {
		return l.client.Timeout
	}
	return coverTimeout
}

// transient reports whether a failed download is worth retrying later.
func transient(err error) bool {
	return errors.Is(err, shared.ErrTransport) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (l *CoverLoader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: cover status %d", shared.ErrTransport, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to download cover: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}
	return img, nil
}

// Placeholder draws the stand-in cover: a grey square with a lighter disc.
func Placeholder(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{0x3a, 0x3a, 0x3a, 0xff}), image.Point{}, draw.Src)
	fillCircle(img, image.Pt(size/2, size/2), size/3, color.RGBA{0x7a, 0x7a, 0x7a, 0xff})
	fillCircle(img, image.Pt(size/2, size/2), size/12, color.RGBA{0x3a, 0x3a, 0x3a, 0xff})
	return img
}
