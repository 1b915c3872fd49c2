package validation

import (
	"html"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
)

// Default values applied when an option fails validation.
const (
	DefaultLinkTarget   = "_blank"
	DefaultBorderRadius = "0.25rem"
	DefaultTimezone     = "UTC"
)

var (
	hexColor     = regexp.MustCompile(`^#([a-fA-F0-9]{3}|[a-fA-F0-9]{6}|[a-fA-F0-9]{8})$`)
	rgbColor     = regexp.MustCompile(`(?i)^rgba?\s*\([0-9a-z.,%\s/+-]+\)$`)
	hslColor     = regexp.MustCompile(`(?i)^hsla?\s*\([0-9a-z.,%\s/+-]+\)$`)
	namedColor   = regexp.MustCompile(`(?i)^(transparent|currentColor)$`)
	borderRadius = regexp.MustCompile(`(?i)^(0|[0-9]+(\.[0-9]+)?(px|em|rem|%|vh|vw|vmin|vmax|ch|ex))$`)
	whitespace   = regexp.MustCompile(`\s+`)

	linkTargets = []string{"_blank", "_self", "_parent", "_top"}

	stripTags = bluemonday.StrictPolicy()
)

// SanitizeText strips markup and collapses whitespace so the value is safe
// to use as plain text in settings and attributes.
func SanitizeText(value string) string {
	value = html.UnescapeString(stripTags.Sanitize(value))
	return strings.TrimSpace(whitespace.ReplaceAllString(value, " "))
}

// ValidateColor accepts hex, rgb[a](), hsl[a]() and the keywords
// transparent and currentColor. Anything else yields "".
func ValidateColor(value string) string {
	value = SanitizeText(value)
	switch {
	case hexColor.MatchString(value), rgbColor.MatchString(value), hslColor.MatchString(value):
		return value
	case namedColor.MatchString(value):
		return strings.ToLower(value)
	default:
		return ""
	}
}

// ValidateLinkTarget returns value when it is a valid anchor target, otherwise _blank.
func ValidateLinkTarget(value string) string {
	if lo.Contains(linkTargets, value) {
		return value
	}
	return DefaultLinkTarget
}

// ValidateBorderRadius accepts a single CSS length, falling back to 0.25rem.
func ValidateBorderRadius(value string) string {
	value = SanitizeText(value)
	if borderRadius.MatchString(value) {
		return value
	}
	return DefaultBorderRadius
}

// ValidateTimezone returns value when it names a loadable location, otherwise UTC.
func ValidateTimezone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTimezone
	}
	if _, err := time.LoadLocation(value); err != nil {
		return DefaultTimezone
	}
	return value
}
