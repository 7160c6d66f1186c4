// Package capture provides the screenshot capture adapter: headless-browser
// captures of a URL across multiple emulated viewports.
package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/site-auditor/internal/blob"
	"github.com/jonathan/site-auditor/internal/report"
)

// DefaultNavTimeout bounds one viewport's navigate-and-screenshot attempt.
const DefaultNavTimeout = 45 * time.Second

// Capturer captures screenshots of a URL. Implementations never return an
// error: every failure mode is folded into the CaptureResult.
type Capturer interface {
	Capture(ctx context.Context, url string) report.CaptureResult
}

// shootFunc captures one viewport and returns PNG bytes. Swapped out in tests.
type shootFunc func(ctx context.Context, url string, vp Viewport) ([]byte, error)

// ChromeCapturer captures screenshots with a headless Chrome instance. One
// browser process is allocated per Capture call and released on every exit
// path; each viewport gets a fresh tab so a crashed render cannot poison the
// next viewport.
type ChromeCapturer struct {
	blobs      blob.Store
	navTimeout time.Duration
	shoot      shootFunc
}

// NewChromeCapturer creates a capturer storing screenshots in the given
// blob store.
func NewChromeCapturer(blobs blob.Store) *ChromeCapturer {
	c := &ChromeCapturer{blobs: blobs, navTimeout: DefaultNavTimeout}
	c.shoot = c.shootChrome
	return c
}

// Capture attempts all viewports independently. Overall success requires at
// least one viewport to land; failed viewports keep their error message but
// are absent from the screenshot reference map.
func (c *ChromeCapturer) Capture(ctx context.Context, url string) report.CaptureResult {
	result := report.CaptureResult{
		Screenshots: make(map[string]string),
		Errors:      make(map[string]string),
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("hide-scrollbars", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	for _, vp := range Viewports {
		png, err := c.shoot(browserCtx, url, vp)
		if err != nil {
			result.Errors[vp.Name] = err.Error()
			continue
		}
		ref, err := c.blobs.Put(png)
		if err != nil {
			result.Errors[vp.Name] = fmt.Sprintf("failed to store screenshot: %v", err)
			continue
		}
		result.Screenshots[vp.Name] = ref
	}

	result.Success = len(result.Screenshots) > 0
	if !result.Success {
		result.Error = "all viewport captures failed"
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result
}

// shootChrome captures one viewport on a fresh tab of the shared browser.
func (c *ChromeCapturer) shootChrome(browserCtx context.Context, url string, vp Viewport) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.navTimeout)
	defer cancelTimeout()

	idle := waitNetworkIdle(tabCtx, 2*time.Second)

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(vp.Width, vp.Height),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return nil, fmt.Errorf("%s capture failed: %w", vp.Name, err)
	}
	return buf, nil
}

// waitNetworkIdle returns a channel closed once no network requests have been
// in flight for idleAfter. Pages that never go idle are bounded by the tab's
// navigation timeout.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMu sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}
	startTimer()

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})

	return idleChan
}
