package tui

import (
	"github.com/dohr-michael/taskdeck/internal/events"
	"github.com/dohr-michael/taskdeck/internal/tasks"
)

// StoreEventMsg is emitted when the task store publishes a change.
type StoreEventMsg struct {
	Event events.Event
}

// OpDoneMsg reports the outcome of a store operation started from the UI.
type OpDoneMsg struct {
	Op  string
	ID  string
	Err error
}

// CreateFailedMsg keeps the rejected draft so the form can be reopened with
// its contents.
type CreateFailedMsg struct {
	Draft tasks.Draft
	Err   error
}

// EventsClosedMsg signals that the store event subscription ended.
type EventsClosedMsg struct{}

// ConnectedMsg signals a successful WS connection (or reconnection).
type ConnectedMsg struct{}

// DisconnectedMsg signals a lost WS connection.
type DisconnectedMsg struct {
	Err error
}
