package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/webrecap/webrecap/internal/config"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Fetcher retrieves page HTML, static first and through a headless browser
// only when the static response looks like an app shell.
type Fetcher struct {
	client   *http.Client
	renderer Renderer
	cfg      config.FetchConfig
}

func New(cfg config.FetchConfig, renderer Renderer) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		renderer: renderer,
		cfg:      cfg,
	}
}

// HTML fetches the page, upgrading to a rendered fetch when the static HTML
// is insufficient. A failed render degrades back to whatever the static
// fetch produced.
func (f *Fetcher) HTML(ctx context.Context, url string) (string, error) {
	html, staticErr := f.Static(ctx, url)
	verdict := Check(html, f.cfg)
	if verdict.Sufficient {
		return html, nil
	}
	logutil.GetLogger(ctx).Info("static html insufficient, trying rendered fetch",
		zap.String("url", url),
		zap.String("reason", verdict.Reason))
	if f.renderer == nil {
		if staticErr != nil {
			return "", staticErr
		}
		return html, nil
	}
	rendered, err := f.renderer.Render(ctx, url)
	if err != nil {
		logutil.GetLogger(ctx).Warn("rendered fetch failed, keeping static html",
			zap.String("url", url),
			zap.Error(err))
		if html == "" && staticErr != nil {
			return "", staticErr
		}
		return html, nil
	}
	return rendered, nil
}

// Static performs a plain GET with the configured browser user agent.
func (f *Fetcher) Static(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: status %d for %s", appErr.ErrFetch, resp.StatusCode, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrFetch, err)
	}
	return string(body), nil
}
