package domain

import "encoding/json"

// Notification one server pushed chat notification
type Notification struct {
	SenderUsername string `json:"sender_username"`
	MessagePreview string `json:"message_preview,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"` // ISO-8601
}

// DeepLink chat page of the sender
func (n Notification) DeepLink() string {
	return "/chat/" + n.SenderUsername + "/"
}

// UnseenState 未讀通知快照, 每次 socket 推送整份替換
type UnseenState struct {
	Notifications []Notification `json:"unseen_notifications"`
	Count         int            `json:"unseen_count"`
}

// Empty unseen state after a successful mark-as-seen
func Empty() UnseenState {
	return UnseenState{Notifications: []Notification{}, Count: 0}
}

// Clone copy so renderers never share the backing array with the session
func (s UnseenState) Clone() UnseenState {
	out := UnseenState{Count: s.Count, Notifications: make([]Notification, len(s.Notifications))}
	copy(out.Notifications, s.Notifications)
	return out
}

// Frame inbound notification socket frame.
// UnseenNotifications stays raw so a present-but-null key is still "present".
type Frame struct {
	Notification        *Notification   `json:"notification,omitempty"`
	UnseenNotifications json.RawMessage `json:"unseen_notifications,omitempty"`
	UnseenCount         int             `json:"unseen_count"`
}

// HasUnseen the frame carries the unseen_notifications key
func (f Frame) HasUnseen() bool {
	return len(f.UnseenNotifications) > 0
}

// Unseen decode the unseen part of the frame
func (f Frame) Unseen() (UnseenState, error) {
	state := UnseenState{Notifications: []Notification{}, Count: f.UnseenCount}
	if string(f.UnseenNotifications) == "null" {
		return state, nil
	}
	if err := json.Unmarshal(f.UnseenNotifications, &state.Notifications); err != nil {
		return UnseenState{}, err
	}
	if state.Notifications == nil {
		state.Notifications = []Notification{}
	}
	return state, nil
}

// UnseenFrame outbound frame carrying the full unseen list, count derived from the list
type UnseenFrame struct {
	UnseenNotifications []Notification `json:"unseen_notifications"`
	UnseenCount         int            `json:"unseen_count"`
}

// NewUnseenFrame build the full-list frame
func NewUnseenFrame(list []Notification) UnseenFrame {
	if list == nil {
		list = []Notification{}
	}
	return UnseenFrame{UnseenNotifications: list, UnseenCount: len(list)}
}

// SingleFrame outbound frame carrying one real-time notification
type SingleFrame struct {
	Notification Notification `json:"notification"`
}

// MarkSeenResponse POST /mark-notifications-seen/ body
type MarkSeenResponse struct {
	Success bool `json:"success"`
}
