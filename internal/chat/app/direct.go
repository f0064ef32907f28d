package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"chat_notifier/internal/chat/domain"
	"chat_notifier/pkg/logger"
	"chat_notifier/pkg/wsconn"

	"go.uber.org/zap"
)

// UploadPath multipart file upload endpoint
const UploadPath = "/service_worker/upload-file/"

// Identity who we are on the chat server
type Identity struct {
	BaseURL   string
	UserID    int
	Username  string
	AuthToken string
	CSRFToken string
}

func (id Identity) socketURL(path string) (string, error) {
	var q url.Values
	if id.AuthToken != "" {
		q = url.Values{"auth": {id.AuthToken}}
	}
	return wsconn.SocketURL(id.BaseURL, path, q)
}

// DirectChat 1 對 1 聊天 socket
type DirectChat struct {
	me           Identity
	peerID       int
	peerUsername string
	room         string
	conn         *wsconn.Conn
	httpClient   *http.Client
}

// NewDirectChat socket to /ws/<peer_id>/, onMessage runs on the socket's read goroutine
func NewDirectChat(me Identity, peerID int, peerUsername string, onMessage func(domain.DirectMessage)) (*DirectChat, error) {
	u, err := me.socketURL(fmt.Sprintf("/ws/%d/", peerID))
	if err != nil {
		return nil, err
	}

	d := &DirectChat{
		me:           me,
		peerID:       peerID,
		peerUsername: peerUsername,
		room:         domain.RoomName(me.UserID, peerID),
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
	}
	d.conn = wsconn.New(wsconn.Options{URL: u, Name: "chat:" + d.room}, wsconn.Handler{
		OnOpen: func(*wsconn.Conn) {
			logger.Log.Info("CONNECTION ESTABLISHED", zap.String("room", d.room))
		},
		OnMessage: func(data []byte) {
			var m domain.DirectMessage
			if err := json.Unmarshal(data, &m); err != nil {
				logger.Log.Error("Malformed chat frame", zap.String("room", d.room), zap.Error(err))
				return
			}
			logger.Log.Debug("Message received", zap.String("room", d.room), zap.String("from", m.Username))
			if onMessage != nil {
				onMessage(m)
			}
		},
		OnClose: func(error) {
			logger.Log.Info("CONNECTION LOST", zap.String("room", d.room))
		},
		OnError: func(err error) {
			logger.Log.Error("ERROR OCCURRED", zap.String("room", d.room), zap.Error(err))
		},
	})
	return d, nil
}

// Room room name shared with the peer
func (d *DirectChat) Room() string { return d.room }

// Run read until closed, no reconnect
func (d *DirectChat) Run(ctx context.Context) error { return d.conn.Run(ctx) }

// Close close the socket
func (d *DirectChat) Close() error { return d.conn.Close() }

// SendText send a trimmed text message, blank text is ignored
func (d *DirectChat) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return d.conn.Send(domain.DirectRequest{
		Message:  text,
		Username: d.me.Username,
		Receiver: d.peerUsername,
		Type:     domain.Text,
	})
}

// SendFile upload the file then announce it on the socket
func (d *DirectChat) SendFile(ctx context.Context, filename, contentType string, r io.Reader) (domain.FileData, error) {
	res, size, err := d.Upload(ctx, filename, contentType, r)
	if err != nil {
		logger.Log.Error("Error uploading file", zap.String("file", filename), zap.Error(err))
		return domain.FileData{}, err
	}

	fileURL := res.FileURL
	if !strings.HasPrefix(fileURL, "http") {
		fileURL = strings.TrimRight(d.me.BaseURL, "/") + fileURL
	}
	fileType := res.FileType
	if fileType == "" {
		fileType = contentType
	}
	fd := domain.FileData{
		FileID:   res.FileID,
		Filename: res.Filename,
		FileURL:  fileURL,
		FileType: fileType,
		FileSize: size,
	}

	if err := d.conn.Send(domain.DirectRequest{
		Username: d.me.Username,
		Receiver: d.peerUsername,
		Type:     domain.File,
		FileData: &fd,
	}); err != nil {
		return fd, err
	}
	return fd, nil
}

// Upload multipart POST of one file into this room's thread; returns the server result and the bytes sent
func (d *DirectChat) Upload(ctx context.Context, filename, contentType string, r io.Reader) (domain.UploadResult, int64, error) {
	var res domain.UploadResult

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return res, 0, err
	}
	size, err := io.Copy(part, r)
	if err != nil {
		return res, 0, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.WriteField("thread_name", domain.ThreadName(d.room)); err != nil {
		return res, 0, err
	}
	if err := mw.Close(); err != nil {
		return res, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(d.me.BaseURL, "/")+UploadPath, &body)
	if err != nil {
		return res, 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-CSRFToken", d.me.CSRFToken)
	if d.me.CSRFToken != "" {
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: d.me.CSRFToken})
	}
	if d.me.AuthToken != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: d.me.AuthToken})
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return res, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, 0, fmt.Errorf("upload failed: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, 0, fmt.Errorf("decode upload result: %w", err)
	}
	if res.Status != "success" {
		msg := res.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return res, 0, fmt.Errorf("failed to upload: %s", msg)
	}
	return res, size, nil
}
