package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/stickerlab/api/internal/config"
)

// Driver launches authenticated browser sessions against the remote
// generation UI. One Session owns one live page; the scheduler guarantees
// at most one Session exists at a time.
type Driver struct {
	cfg config.BrowserConfig
}

func NewDriver(cfg config.BrowserConfig) *Driver {
	return &Driver{cfg: cfg}
}

// Session is one live page against the remote service.
type Session struct {
	cfg config.BrowserConfig

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Acquire starts a browser, navigates to the remote UI and blocks until an
// input surface renders. With a fresh profile the user may need to log in
// manually in the opened window, so the ready wait is deliberately long
// (ReadyTimeout, 10 minutes by default).
func (d *Driver) Acquire(ctx context.Context) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.NoSandbox,
	)
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}
	if d.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	pageCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         d.cfg,
		ctx:         pageCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}

	log.Printf("[Browser] Navigating to %s", d.cfg.RemoteURL)
	if err := s.run(ctx, 90*time.Second, chromedp.Navigate(d.cfg.RemoteURL)); err != nil {
		// Slow first paint is common behind bot checks; the ready wait
		// below decides whether the session is actually usable.
		log.Printf("[Browser] Navigation did not settle: %v", err)
	}

	sel, err := s.firstVisible(ctx, composerSelectors, d.cfg.ReadyTimeout)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if sel == "" {
		s.Close()
		return nil, fmt.Errorf("%w: no input surface within %s", ErrSessionUnavailable, d.cfg.ReadyTimeout)
	}

	log.Printf("[Browser] Session ready (composer: %s)", sel)
	return s, nil
}

// Submit uploads the attachments one by one, waits for each to be accepted,
// then fills the composer and sends the message as one interactive turn.
func (s *Session) Submit(ctx context.Context, text string, attachments []string) error {
	for _, p := range attachments {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("attachment %s: %w", p, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("attachment %s: %w", p, err)
		}

		if err := s.run(ctx, 30*time.Second,
			chromedp.SetUploadFiles(`input[type="file"]`, []string{abs}, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("upload %s: %w", filepath.Base(abs), err)
		}

		// The upload pipeline acknowledges asynchronously and is
		// order-sensitive: wait for a preview chip, then settle.
		_, _ = s.firstVisible(ctx, attachmentSelectors, s.cfg.UploadSettle)
		if err := s.pause(ctx, s.cfg.UploadSettle); err != nil {
			return err
		}
	}

	sel, err := s.findComposer(ctx)
	if err != nil {
		return err
	}

	if err := s.run(ctx, 30*time.Second,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.KeyEvent(kb.Enter),
	); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	log.Printf("[Browser] Message sent (%d attachments)", len(attachments))
	return nil
}

// findComposer retries the composer lookup a bounded number of rounds.
// After a file upload the composer can stay detached for several seconds.
func (s *Session) findComposer(ctx context.Context) (string, error) {
	attempts := s.cfg.InputAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		sel, err := s.firstVisible(ctx, composerSelectors, 5*time.Second)
		if err != nil {
			return "", err
		}
		if sel != "" {
			return sel, nil
		}
		log.Printf("[Browser] Composer not ready (attempt %d/%d)", i, attempts)
		if err := s.pause(ctx, 5*time.Second); err != nil {
			return "", err
		}
	}
	return "", ErrInputUnavailable
}

// AwaitCompletion blocks until the remote signals the generation turn has
// finished. It never fails: a false negative here only costs a settle delay,
// while aborting would waste the whole multi-minute turn. The artifact probe
// at the end is best-effort; FetchLatestArtifact does the real check.
func (s *Session) AwaitCompletion(ctx context.Context) {
	start := time.Now()

	// Generation can begin before the busy indicator renders, so its
	// absence is tolerated.
	if sel, _ := s.firstVisible(ctx, busySelectors, time.Minute); sel != "" {
		log.Printf("[Browser] Generation in progress (%s)", sel)
	} else {
		log.Printf("[Browser] No busy indicator; assuming generation already started")
	}

	if done, _ := s.waitHidden(ctx, busySelectors, s.cfg.GenTimeout); !done {
		log.Printf("[Browser] Busy indicator still visible after %s; proceeding", s.cfg.GenTimeout)
	}

	// Rendering continues asynchronously after the indicator clears.
	_ = s.pause(ctx, s.cfg.RenderSettle)

	var src string
	if err := s.run(ctx, 10*time.Second, chromedp.Evaluate(latestArtifactJS, &src)); err != nil || src == "" {
		log.Printf("[Browser] No verifiable artifact yet; extra settle")
		_ = s.pause(ctx, s.cfg.RenderSettle)
	}

	log.Printf("[Browser] Generation turn finished in %s", time.Since(start).Round(time.Second))
}

// CaptureDiagnostic writes a full-page screenshot for debugging. Failures
// are ignored; this is a side-channel, never a correctness mechanism.
func (s *Session) CaptureDiagnostic(ctx context.Context, path string) {
	var buf []byte
	if err := s.run(ctx, 20*time.Second, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(path, buf, 0o644)
}

// Close releases the page and the browser process. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	log.Printf("[Browser] Closing session")
	s.cancel()
	s.allocCancel()
}

// run executes chromedp actions on the session page with a bounded timeout,
// honouring cancellation from the caller's context as well.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// pause sleeps for d unless the caller's context ends first.
func (s *Session) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
