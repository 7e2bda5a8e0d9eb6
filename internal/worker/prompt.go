package worker

import (
	"fmt"
	"strings"
)

// DefaultBasePrompt is used when a request carries no custom prompt. It
// binds the character identity to the mother image, uses the anchor image
// for style and proportion correction, and pins the sticker constraints so
// only the expression/pose varies between items.
const DefaultBasePrompt = `Use my uploaded "mother image" (the original character reference) as the single source of truth for the character's identity, and my uploaded "anchor image" (the closest previously generated result) as a style and proportion correction reference.

[Character consistency — highest priority]
- The full sticker set shows exactly one fixed character; no second character or variant may appear
- Face structure, feature proportions, eye/nose/mouth shape and overall demeanor must stay consistent across the whole set
- Hairstyle, hair color, outfit, palette and art style follow the mother image; the anchor image only corrects proportions and style drift
- When the two references disagree, the mother image wins
- No character fusion, exaggeration of identity, or stylistic makeover

[Style and purpose]
- Realistic sketch style, clean lines, soft colors
- Expressions may be exaggerated but cute, without breaking face shape or proportions
- Intended as an original static LINE sticker

[Sticker format rules]
- Image size: 370 x 320 px, PNG, transparent background, under 1MB
- Character centered, not cropped at the edges, with a safe margin
- Character clearly recognizable; any text must stay readable
- No trademarks, brands or third-party characters

[Hard limits]
- Only body pose and emotion change between stickers; never the face shape, feature proportions or demeanor
- No extra objects or backgrounds
- Never change the art style

Output exactly one sticker image that satisfies the rules above.`

// ComposePrompt joins the shared base prompt with one preset fragment as a
// single interactive turn.
func ComposePrompt(base, fragment string) string {
	return base + "\n\n" + fragment
}

// artifactFilename derives the output filename for one item from its
// 1-based index and preset title, e.g. "sticker_03_big_laugh.png".
func artifactFilename(index int, title string) string {
	return fmt.Sprintf("sticker_%02d_%s.png", index, sanitizeTitle(title))
}

// sanitizeTitle makes a preset title safe as a filename component.
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		default:
			// Non-ASCII titles (the preset library may be localized) are
			// kept as-is unless the rune is path-hostile.
			if r > 127 && !strings.ContainsRune(`/\:*?"<>|`, r) {
				b.WriteRune(r)
			}
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
