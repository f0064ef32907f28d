package domain

import "time"

// MessageType page -> worker message type
type MessageType string

const (
	// ShowNotification ask the worker to display an OS notification
	ShowNotification MessageType = "SHOW_NOTIFICATION"
)

// NotificationData payload carried through to the click handler
type NotificationData struct {
	URL string `json:"url,omitempty"`
}

// NotificationOptions display options
type NotificationOptions struct {
	Body string           `json:"body,omitempty"`
	Icon string           `json:"icon,omitempty"`
	Data NotificationData `json:"data"`
}

// Message page -> worker request.
// ID correlates a Reply; fire-and-forget senders may leave it empty.
type Message struct {
	ID      string              `json:"id,omitempty"`
	Type    MessageType         `json:"type"`
	Title   string              `json:"title"`
	Options NotificationOptions `json:"options"`
}

// Reply worker -> page response
type Reply struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// DisplayedNotification a notification the worker has put on screen
type DisplayedNotification struct {
	ID      string              `json:"id"`
	Title   string              `json:"title"`
	Options NotificationOptions `json:"options"`
	ShownAt time.Time           `json:"shown_at"`
}

// State worker lifecycle state
type State string

const (
	// StateParsed created, not yet installing
	StateParsed State = "parsed"
	// StateInstalling install handler running
	StateInstalling State = "installing"
	// StateInstalled waiting to activate
	StateInstalled State = "installed"
	// StateActivating activate handler running
	StateActivating State = "activating"
	// StateActivated steady state, handles messages
	StateActivated State = "activated"
	// StateRedundant replaced or stopped
	StateRedundant State = "redundant"
)

// WindowClient an open window the worker can focus
type WindowClient struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Focused bool   `json:"focused"`
}
