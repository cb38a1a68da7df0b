package feed

import (
	"fmt"
	"regexp"
	"strings"
)

// urlRe matches links in post text. The optional leading "s" swallows the
// stray character some clients prepend to the scheme.
var urlRe = regexp.MustCompile(`(?i)s?https?://[-_.!~*'()a-zA-Z0-9;/?:@&=+$,%#]+`)

// NewlineMode selects how line breaks are flattened.
type NewlineMode string

const (
	// NewlineSpace replaces each "\n" with a single space.
	NewlineSpace NewlineMode = "space"
	// NewlineRemove drops "\n" outright.
	NewlineRemove NewlineMode = "remove"
)

// Normalize strips every URL from text and flattens it to a single line.
// The first URL found (left to right) is returned as link, or "" if none.
func Normalize(text string) (clean, link string) {
	return NormalizeWith(text, NewlineSpace)
}

// NormalizeWith is Normalize with an explicit newline mode.
func NormalizeWith(text string, mode NewlineMode) (clean, link string) {
	link = urlRe.FindString(text)
	clean = urlRe.ReplaceAllString(text, "")
	clean = strings.ReplaceAll(clean, "\r", "")
	if mode == NewlineRemove {
		clean = strings.ReplaceAll(clean, "\n", "")
	} else {
		clean = strings.ReplaceAll(clean, "\n", " ")
	}
	// Dropping "\r" can splice a new URL together ("http\r://...").
	for urlRe.MatchString(clean) {
		clean = urlRe.ReplaceAllString(clean, "")
	}
	return clean, link
}

// Accept applies the locale filter and, if the post passes, normalizes it.
// Posts whose author locale differs from locale are rejected untouched.
func Accept(kind Kind, post Post, locale string, mode NewlineMode) (NormalizedEvent, bool) {
	if post.User.Lang != locale {
		return NormalizedEvent{}, false
	}

	body, link := NormalizeWith(post.Text, mode)
	post.Text = body

	return NormalizedEvent{
		Kind:   kind,
		Author: post.User.Name,
		Handle: post.User.ScreenName,
		ID:     post.ID,
		Body:   post.Text,
		Link:   link,
	}, true
}

// Permalink returns the canonical URL of a post.
func Permalink(base, handle string, id int64) string {
	return fmt.Sprintf("%s/%s/status/%d", strings.TrimRight(base, "/"), handle, id)
}

// Label is the visible text of a display item. The trailing space is kept so
// the appended link does not touch the body.
func (e NormalizedEvent) Label() string {
	return fmt.Sprintf("%s @ %s : %s ", e.Author, e.Handle, e.Body)
}
