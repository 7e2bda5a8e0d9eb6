package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Selector strategies, tried in priority order. The remote UI ships no
// stable API, so each capability is probed through a list of candidates;
// the lists are a maintenance concern and change with the remote DOM.
var composerSelectors = []string{
	`textarea[name="prompt-textarea"]`,
	`#prompt-textarea`,
	`textarea[placeholder*="Message"]`,
	`div[contenteditable="true"]`,
	`textarea`,
}

var busySelectors = []string{
	`button[data-testid="stop-button"]`,
	`button[aria-label="Stop generating"]`,
	`button[aria-label="Stop streaming"]`,
}

var attachmentSelectors = []string{
	`[data-testid="attachment"]`,
	`div[class*="attachment"] img`,
	`button[aria-label="Remove file"]`,
}

// latestArtifactJS walks the artifact selectors in priority order, tags the
// newest match so it can be addressed again (for element screenshots), and
// returns its src. Sources shorter than 50 chars are placeholders, not
// results.
const latestArtifactJS = `(() => {
	const selectors = [
		'img[alt*="Generated"]',
		'img[src*="dalle"]',
		'img[src*="oaidalleapiprodscus"]',
		'img[src^="blob:"]',
		'img[src^="data:image"]',
		'div[data-message-author-role="assistant"] img',
	];
	document.querySelectorAll('[data-stickerlab-latest]').forEach(el => el.removeAttribute('data-stickerlab-latest'));
	for (const sel of selectors) {
		const nodes = document.querySelectorAll(sel);
		if (nodes.length === 0) continue;
		const node = nodes[nodes.length - 1];
		const src = node.getAttribute('src') || '';
		if (src.length > 50) {
			node.setAttribute('data-stickerlab-latest', '1');
			return src;
		}
	}
	return '';
})()`

// latestArtifactSel addresses the element tagged by latestArtifactJS.
const latestArtifactSel = `[data-stickerlab-latest]`

// firstVisible polls until one of the selectors matches a rendered element,
// returning the selector that hit. Empty string means the wait timed out.
func (s *Session) firstVisible(ctx context.Context, selectors []string, timeout time.Duration) (string, error) {
	sels, err := json.Marshal(selectors)
	if err != nil {
		return "", err
	}
	expr := fmt.Sprintf(`((sels) => {
		for (const sel of sels) {
			let el;
			try { el = document.querySelector(sel); } catch (e) { continue; }
			if (el && el.getClientRects().length > 0) return sel;
		}
		return '';
	})(%s)`, sels)

	deadline := time.Now().Add(timeout)
	for {
		var hit string
		if err := s.run(ctx, 10*time.Second, chromedp.Evaluate(expr, &hit)); err == nil && hit != "" {
			return hit, nil
		}
		if time.Now().After(deadline) {
			return "", nil
		}
		if err := s.pause(ctx, time.Second); err != nil {
			return "", err
		}
	}
}

// waitHidden polls until none of the selectors matches a rendered element.
// Returns false if the ceiling was hit with an element still visible.
func (s *Session) waitHidden(ctx context.Context, selectors []string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		hit, err := s.firstVisible(ctx, selectors, 0)
		if err != nil {
			return false, err
		}
		if hit == "" {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := s.pause(ctx, 2*time.Second); err != nil {
			return false, err
		}
	}
}
