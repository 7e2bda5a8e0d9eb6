package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// sourceKind classifies how a result image is addressed in the page.
type sourceKind int

const (
	sourceUnknown sourceKind = iota
	sourceData               // inline base64 data URL
	sourceBlob               // ephemeral in-memory blob reference
	sourceRemote             // http(s) resource
)

func classifySource(src string) sourceKind {
	switch {
	case strings.HasPrefix(src, "data:image"):
		return sourceData
	case strings.HasPrefix(src, "blob:"):
		return sourceBlob
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return sourceRemote
	default:
		return sourceUnknown
	}
}

// decodeDataURL extracts the payload of a data:image/...;base64,... URL.
func decodeDataURL(src string) ([]byte, error) {
	_, payload, ok := strings.Cut(src, ",")
	if !ok || payload == "" {
		return nil, fmt.Errorf("malformed data URL")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// FetchLatestArtifact locates the newest result image and returns its bytes.
// Three representations are handled: inline data URLs are decoded directly,
// blob URLs fall back to screenshotting the element itself, and remote URLs
// are fetched inside the page so the session's own cookies apply.
func (s *Session) FetchLatestArtifact(ctx context.Context) ([]byte, error) {
	var src string
	if err := s.run(ctx, 15*time.Second, chromedp.Evaluate(latestArtifactJS, &src)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	if src == "" {
		return nil, ErrArtifactUnavailable
	}

	preview := src
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	log.Printf("[Browser] Downloading artifact: %s", preview)

	switch classifySource(src) {
	case sourceData:
		data, err := decodeDataURL(src)
		if err != nil {
			return nil, fmt.Errorf("%w: decode data URL: %v", ErrArtifactUnavailable, err)
		}
		return data, nil

	case sourceBlob:
		// Blob URLs are only resolvable by the page that minted them;
		// render the element instead.
		var buf []byte
		if err := s.run(ctx, 30*time.Second,
			chromedp.Screenshot(latestArtifactSel, &buf, chromedp.ByQuery),
		); err != nil {
			return nil, fmt.Errorf("%w: element screenshot: %v", ErrArtifactUnavailable, err)
		}
		return buf, nil

	case sourceRemote:
		data, err := s.fetchInPage(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("%w: unsupported source %q", ErrArtifactUnavailable, preview)
	}
}

// fetchInPage downloads a URL through the page's own transport and returns
// the raw bytes via a base64 round trip.
func (s *Session) fetchInPage(ctx context.Context, url string) ([]byte, error) {
	expr := fmt.Sprintf(`fetch(%s).then(r => {
		if (!r.ok) throw new Error('status ' + r.status);
		return r.blob();
	}).then(b => new Promise((resolve, reject) => {
		const fr = new FileReader();
		fr.onload = () => resolve(fr.result.split(',')[1]);
		fr.onerror = () => reject(fr.error);
		fr.readAsDataURL(b);
	}))`, strconv.Quote(url))

	var b64 string
	err := s.run(ctx, 60*time.Second, chromedp.Evaluate(expr, &b64,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("in-page fetch: %w", err)
	}
	return base64.StdEncoding.DecodeString(b64)
}
