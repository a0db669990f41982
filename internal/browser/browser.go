package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/chatcheck/internal/config"
)

// Browser owns one Chrome process. Sessions opened from it share the
// process but nothing else.
type Browser struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	log         logrus.FieldLogger
}

// Launch starts Chrome. The browser lives until Close or until ctx ends.
func Launch(ctx context.Context, cfg config.BrowserConfig, log logrus.FieldLogger) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(cfg)...)

	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Warnf),
	)

	// An empty Run starts the browser
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.WithField("headless", cfg.Headless).Debug("Browser started")

	return &Browser{
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
		log:         log,
	}, nil
}

// NewSession opens a tab in a fresh browser context, so cookies and local
// storage are not shared with any other session.
func (b *Browser) NewSession(name string, opts SessionOptions) (*Session, error) {
	ctx, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())

	s := newSession(ctx, cancel, name, b.log.WithField("session", name))
	chromedp.ListenTarget(ctx, s.onEvent)

	if err := chromedp.Run(ctx, opts.actions()...); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open session %s: %w", name, err)
	}
	return s, nil
}

// Close shuts the browser down
func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
}
