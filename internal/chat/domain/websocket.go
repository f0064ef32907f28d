package domain

import (
	"fmt"
	"strings"
)

// MessageType direct chat frame type
type MessageType string

const (
	// Text plain text message
	Text MessageType = "text"
	// File uploaded file message
	File MessageType = "file"
)

// PresenceType presence frame type
type PresenceType string

const (
	// PresenceOpen user came online
	PresenceOpen PresenceType = "open"
	// PresenceClose user is leaving
	PresenceClose PresenceType = "close"
)

// FileData uploaded file attached to a direct message
type FileData struct {
	FileID   int64  `json:"file_id"`
	Filename string `json:"filename"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// IsImage whether the file renders inline
func (f FileData) IsImage() bool {
	return strings.HasPrefix(f.FileType, "image/")
}

// DirectRequest outbound frame on /ws/<peer_id>/
type DirectRequest struct {
	Message  string      `json:"message,omitempty"`
	Username string      `json:"username"`
	Receiver string      `json:"receiver"`
	Type     MessageType `json:"type"`
	FileData *FileData   `json:"file_data,omitempty"`
}

// DirectMessage inbound frame on /ws/<peer_id>/
type DirectMessage struct {
	Message     string      `json:"message"`
	Username    string      `json:"username"`
	MessageType MessageType `json:"message_type,omitempty"`
	FileData    *FileData   `json:"file_data,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"`
}

// IsFile file message with its metadata
func (m DirectMessage) IsFile() bool {
	return m.MessageType == File && m.FileData != nil
}

// UploadResult POST /service_worker/upload-file/ response
type UploadResult struct {
	Status   string `json:"status"`
	FileID   int64  `json:"file_id"`
	Filename string `json:"filename"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	Error    string `json:"error,omitempty"`
}

// GroupRequest outbound frame on /ws/group/<group_id>/
type GroupRequest struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// GroupSender sender of a group message
type GroupSender struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// GroupMessage inbound frame on /ws/group/<group_id>/
type GroupMessage struct {
	Message   string      `json:"message"`
	Sender    GroupSender `json:"sender"`
	Timestamp string      `json:"timestamp"`
}

// SenderName "You" for our own messages
func (m GroupMessage) SenderName(currentUserID int) string {
	if m.Sender.ID == currentUserID {
		return "You"
	}
	return m.Sender.Username
}

// PresenceRequest outbound frame on /ws/online/
type PresenceRequest struct {
	Username string       `json:"username"`
	Type     PresenceType `json:"type"`
}

// PresenceUpdate inbound frame on /ws/online/
type PresenceUpdate struct {
	Username     string `json:"username"`
	OnlineStatus bool   `json:"online_status"`
}

// RoomName "<higher id>-<lower id>", the same for both participants
func RoomName(a, b int) string {
	if a > b {
		return fmt.Sprintf("%d-%d", a, b)
	}
	return fmt.Sprintf("%d-%d", b, a)
}

// ThreadName upload thread of a direct room
func ThreadName(room string) string {
	return "chat_" + room
}
