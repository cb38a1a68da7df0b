// Package feed defines the records delivered by the upstream stream and the
// normalization applied before anything reaches the screen.
package feed

import "encoding/json"

// Kind identifies which subscription produced an event.
type Kind string

const (
	// KindTimeline is the subscription scoped to the account's own feed.
	KindTimeline Kind = "timeline"
	// KindKeyword is the subscription scoped to posts matching a keyword.
	KindKeyword Kind = "keyword"
)

// EventType tags the variant carried by a RawEvent.
type EventType string

const (
	EventStatus     EventType = "status"
	EventDelete     EventType = "delete"
	EventFriends    EventType = "friends"
	EventNotice     EventType = "event"
	EventLimit      EventType = "limit"
	EventDisconnect EventType = "disconnect"
)

// RawEvent is one message from the upstream stream. Only EventStatus with a
// non-nil Status is processed; every other variant is ignored.
type RawEvent struct {
	Type   EventType       `json:"type"`
	Status *Post           `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// IsStatus reports whether the event carries a post.
func (e RawEvent) IsStatus() bool {
	return e.Type == EventStatus && e.Status != nil
}

// User is the author of a post.
type User struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	Lang       string `json:"lang"`
}

// Post is a single status item.
type Post struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	User User   `json:"user"`
}

// NormalizedEvent is an accepted post ready for display. Link is empty when
// the body contained no URL.
type NormalizedEvent struct {
	Kind   Kind
	Author string
	Handle string
	ID     int64
	Body   string
	Link   string
}
