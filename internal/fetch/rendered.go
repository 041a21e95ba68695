package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/webrecap/webrecap/internal/config"
	appErr "github.com/webrecap/webrecap/internal/pkg/errors"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Renderer loads a page in a real browser and returns the settled DOM.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type chromeRenderer struct {
	cfg config.FetchConfig
}

func NewChromeRenderer(cfg config.FetchConfig) Renderer {
	return &chromeRenderer{cfg: cfg}
}

// Render retries a few times with growing backoff; heavy SPA pages fail
// intermittently on first load.
func (r *chromeRenderer) Render(ctx context.Context, url string) (string, error) {
	attempts := r.cfg.RenderRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			logutil.GetLogger(ctx).Info("retrying rendered fetch",
				zap.String("url", url),
				zap.Int("attempt", attempt+1))
		}
		html, err := r.renderOnce(ctx, url, attempt)
		if err == nil {
			return html, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: rendered fetch: %v", appErr.ErrFetch, lastErr)
}

// readiness is the load-completion criteria for one render attempt.
type readiness struct {
	wait   chromedp.Action
	settle time.Duration
}

// readinessForAttempt loosens the criteria on every retry. The first attempt
// holds out for a visible body with a long settle; the second accepts a ready
// body; anything after takes whatever DOM exists shortly after navigation.
// Network idle is never used; chat and analytics widgets keep connections
// open forever on many sites.
func readinessForAttempt(attempt int) readiness {
	switch attempt {
	case 0:
		return readiness{wait: chromedp.WaitVisible("body", chromedp.ByQuery), settle: 2 * time.Second}
	case 1:
		return readiness{wait: chromedp.WaitReady("body", chromedp.ByQuery), settle: time.Second}
	default:
		return readiness{settle: 500 * time.Millisecond}
	}
}

func (r *chromeRenderer) renderOnce(ctx context.Context, url string, attempt int) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(r.cfg.UserAgent),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	timeout := time.Duration(r.cfg.TimeoutSeconds*3) * time.Second
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	var html string
	ready := readinessForAttempt(attempt)
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if ready.wait != nil {
		actions = append(actions, ready.wait)
	}
	actions = append(actions,
		chromedp.Sleep(ready.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		return "", err
	}
	return html, nil
}
