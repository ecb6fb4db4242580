// Package chat turns normalized chat-transport inputs into calls on the
// domain services and renders their results as reply text.
package chat

import "time"

// Command is a slash command after transport-level parsing.
type Command struct {
	Name            string   `json:"name"`
	RequesterID     int64    `json:"requester_id"`
	RequesterHandle string   `json:"requester_handle,omitempty"`
	GroupID         int64    `json:"group_id"`
	Private         bool     `json:"private"`
	Admin           bool     `json:"admin"`
	Args            []string `json:"args,omitempty"`
}

// SignalKind is a transport-level meeting event.
type SignalKind string

const (
	SignalStart SignalKind = "start"
	SignalEnd   SignalKind = "end"
)

// Signal reports a video chat starting or ending in a group.
type Signal struct {
	Kind    SignalKind `json:"kind"`
	GroupID int64      `json:"group_id"`
	At      time.Time  `json:"at"`
}

// Reply is the text to send back. Silent replies are not sent.
type Reply struct {
	Text   string `json:"text,omitempty"`
	Silent bool   `json:"silent,omitempty"`
}

func say(text string) *Reply {
	return &Reply{Text: text}
}
