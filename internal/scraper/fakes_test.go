package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maltedev/sku-price-scraper/internal/browser"
	"golang.org/x/sync/semaphore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePage serves canned HTML per URL and can be told to fail at any step.
type fakePage struct {
	html        string
	gotoErr     error
	waitErr     error
	contentErr  error
	closeErr    error
	gotoDelay   time.Duration
	closed      atomic.Bool
	screenshots []string
}

func (p *fakePage) Goto(url string, timeout time.Duration) error {
	if p.gotoDelay > 0 {
		time.Sleep(p.gotoDelay)
	}
	return p.gotoErr
}

func (p *fakePage) WaitForSelector(selector string, timeout time.Duration) error {
	return p.waitErr
}

func (p *fakePage) Content() (string, error) {
	return p.html, p.contentErr
}

func (p *fakePage) Screenshot(path string) error {
	p.screenshots = append(p.screenshots, path)
	return os.WriteFile(path, []byte("png"), 0644)
}

func (p *fakePage) Close() error {
	p.closed.Store(true)
	return p.closeErr
}

// fakeBrowser hands out pages whose content is chosen by the URL they navigate to.
type fakeBrowser struct {
	mu      sync.Mutex
	byURL   map[string]func() *fakePage
	opened  []*fakePage
	openErr error
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{byURL: make(map[string]func() *fakePage)}
}

func (b *fakeBrowser) on(url string, build func() *fakePage) {
	b.byURL[url] = build
}

func (b *fakeBrowser) NewPage() (browser.Page, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return &routingPage{browser: b}, nil
}

func (b *fakeBrowser) allClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.opened {
		if !p.closed.Load() {
			return false
		}
	}
	return true
}

// routingPage picks its fakePage on Goto, mirroring how a real tab only
// gets its content once navigated.
type routingPage struct {
	browser *fakeBrowser
	page    *fakePage
}

func (r *routingPage) Goto(url string, timeout time.Duration) error {
	r.browser.mu.Lock()
	build, ok := r.browser.byURL[url]
	if !ok {
		r.browser.mu.Unlock()
		return fmt.Errorf("no fake page for %s", url)
	}
	r.page = build()
	r.browser.opened = append(r.browser.opened, r.page)
	r.browser.mu.Unlock()
	return r.page.Goto(url, timeout)
}

func (r *routingPage) WaitForSelector(selector string, timeout time.Duration) error {
	return r.page.WaitForSelector(selector, timeout)
}

func (r *routingPage) Content() (string, error) {
	return r.page.Content()
}

func (r *routingPage) Screenshot(path string) error {
	if r.page == nil {
		return errors.New("nothing rendered")
	}
	return r.page.Screenshot(path)
}

func (r *routingPage) Close() error {
	if r.page == nil {
		return nil
	}
	return r.page.Close()
}

// countingLimiter wraps a semaphore and records the peak number of holders.
type countingLimiter struct {
	sem     *semaphore.Weighted
	current atomic.Int64
	peak    atomic.Int64
}

func newCountingLimiter(n int64) *countingLimiter {
	return &countingLimiter{sem: semaphore.NewWeighted(n)}
}

func (l *countingLimiter) Acquire(ctx context.Context, n int64) error {
	if err := l.sem.Acquire(ctx, n); err != nil {
		return err
	}
	cur := l.current.Add(n)
	for {
		peak := l.peak.Load()
		if cur <= peak || l.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	return nil
}

func (l *countingLimiter) Release(n int64) {
	l.current.Add(-n)
	l.sem.Release(n)
}

func timeoutErr(kind error) error {
	return fmt.Errorf("wait: %w: Timeout 30000ms exceeded", kind)
}
