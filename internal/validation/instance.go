package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	schemePrefix    = regexp.MustCompile(`^https?://`)
	invalidHostTail = regexp.MustCompile(`[^a-zA-Z0-9.-].*$`)
)

var (
	// ErrInvalidHandle is returned when a handle is not username@domain
	ErrInvalidHandle = errors.New("invalid handle format")
	// ErrInvalidDomain is returned when the domain part of a handle has no dot
	ErrInvalidDomain = errors.New("invalid instance domain")
)

// SanitizeInstance reduces user input to a bare instance host name: the
// http(s) scheme is removed and everything from the first character that
// cannot appear in a host name is cut off.
//
//	"https://mastodon.social/x?y" -> "mastodon.social"
func SanitizeInstance(instance string) string {
	instance = schemePrefix.ReplaceAllString(instance, "")
	return invalidHostTail.ReplaceAllString(instance, "")
}

// SanitizeTag strips every leading '#', so "##tag" becomes "tag".
func SanitizeTag(tag string) string {
	return strings.TrimLeft(tag, "#")
}

// Handle is a parsed username@domain account handle.
type Handle struct {
	Username string
	Domain   string
}

// Acct returns the handle without its leading '@'.
func (h Handle) Acct() string {
	return h.Username + "@" + h.Domain
}

// ParseHandle parses "[@]username@domain". It fails with ErrInvalidHandle
// unless there are exactly two non-empty parts, and with ErrInvalidDomain
// when the domain has no dot.
func ParseHandle(handle string) (Handle, error) {
	clean := strings.TrimLeft(strings.TrimSpace(handle), "@")
	parts := strings.Split(clean, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Handle{}, ErrInvalidHandle
	}
	if !strings.Contains(parts[1], ".") {
		return Handle{}, ErrInvalidDomain
	}
	return Handle{Username: parts[0], Domain: parts[1]}, nil
}
