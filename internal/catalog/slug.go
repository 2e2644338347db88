package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugSuffix = 1000

// Slugify lowercases value, strips accents and joins words with single dashes.
func Slugify(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// GenerateUniqueSlug slugifies base and appends -1, -2, ... until exists reports the slug free.
// An empty base falls back to 8 random characters.
func GenerateUniqueSlug(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	root := Slugify(base)
	if root == "" {
		root = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	candidate := root
	for i := 1; i <= maxSlugSuffix; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", root, i)
	}
	return "", fmt.Errorf("no free slug for %q", root)
}
