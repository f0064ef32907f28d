package router

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "chat_notifier/cmd/notify_server/docs"
	napp "chat_notifier/internal/notification/app"
	ndomain "chat_notifier/internal/notification/domain"
	nrepo "chat_notifier/internal/notification/repository"
	"chat_notifier/internal/notifyserver/app"
	"chat_notifier/internal/notifyserver/domain"
	"chat_notifier/internal/notifyserver/repository"
	"chat_notifier/pkg/config"
	"chat_notifier/pkg/encrypt"
	"chat_notifier/pkg/logger"
	t_token "chat_notifier/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bobPassword = "password123"

func init() {
	logger.SetNewNop()
}

type testServer struct {
	app    *fiber.App
	unseen repository.UnseenRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	bus := repository.NewMemoryPubSub()
	return newTestServerWith(t, bus, bus)
}

func newTestServerWith(t *testing.T, pub repository.Publisher, sub repository.Subscriber) *testServer {
	t.Helper()
	hash, err := encrypt.HashPassword(bobPassword)
	require.NoError(t, err)

	unseen := repository.NewMemoryUnseenRepository()
	uc := app.NewNotifyUseCase(unseen, pub, 50)

	r := fiber.New()
	RegisterRoutes(r,
		app.NewAuthHandler([]config.UserConfig{{ID: 7, Username: "bob", PasswordHash: hash}}),
		app.NewNotifyHandler(uc),
		app.NewNotificationWebsocketHandler(uc, sub),
	)
	return &testServer{app: r, unseen: unseen}
}

// listen serve on a random local port until the test ends
func (s *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.app.Listener(ln)
	t.Cleanup(func() { s.app.ShutdownWithTimeout(time.Second) })
	return ln.Addr().String()
}

func tokenFor(t *testing.T, id int, name string) string {
	t.Helper()
	tok, err := t_token.GenerateJWT(id, name, app.Issuer)
	require.NoError(t, err)
	return tok
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader(`{"username":"bob","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	names := map[string]string{}
	for _, c := range resp.Cookies() {
		names[c.Name] = c.Value
	}
	assert.NotEmpty(t, names["auth_token"])
	assert.NotEmpty(t, names["csrftoken"])

	body := decode(t, resp)
	assert.Equal(t, float64(7), body["user_id"])
	assert.Equal(t, names["csrftoken"], body["csrf_token"])

	claims, err := t_token.ParseJWT(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Username)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)

	for _, payload := range []string{
		`{"username":"bob","password":"nope-nope"}`,
		`{"username":"mallory","password":"password123"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, payload)
	}
}

func TestPushNotification(t *testing.T) {
	s := newTestServer(t)
	alice := tokenFor(t, 3, "alice")

	req := httptest.NewRequest(http.MethodPost, "/notifications/7/?auth="+alice, strings.NewReader(`{"message":"hi bob"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	list, err := s.unseen.List(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].SenderUsername)
	assert.Equal(t, "hi bob", list[0].MessagePreview)
}

func TestSwaggerDocs(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Info  map[string]interface{}            `json:"info"`
		Paths map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "Chat Notify Server API", doc.Info["title"])
	for _, path := range []string{"/login/", "/mark-notifications-seen/", "/notifications/{userId}/"} {
		assert.Contains(t, doc.Paths[path], "post", path)
	}

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPushNotification_Unauthorized(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/notifications/7/", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMarkSeen(t *testing.T) {
	s := newTestServer(t)
	bob := tokenFor(t, 7, "bob")
	_, err := s.unseen.Append(context.Background(), 7, ndomain.Notification{SenderUsername: "alice"})
	require.NoError(t, err)

	t.Run("missing csrf header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mark-notifications-seen/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: bob})
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: "abc"})
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, false, decode(t, resp)["success"])

		list, _ := s.unseen.List(context.Background(), 7)
		assert.Len(t, list, 1)
	})

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/mark-notifications-seen/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: bob})
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: "abc"})
		req.Header.Set("X-CSRFToken", "abc")
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, decode(t, resp)["success"])

		list, _ := s.unseen.List(context.Background(), 7)
		assert.Empty(t, list)
	})
}

func TestNotificationSocket_Guards(t *testing.T) {
	s := newTestServer(t)
	bob := tokenFor(t, 7, "bob")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"no token", "/ws/notification/7/", http.StatusUnauthorized},
		{"other user", "/ws/notification/8/?auth=" + bob, http.StatusForbidden},
		{"bad id", "/ws/notification/x/?auth=" + bob, http.StatusBadRequest},
		{"no upgrade", "/ws/notification/7/?auth=" + bob, http.StatusUpgradeRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

type recordForwarder struct {
	mu  sync.Mutex
	got []ndomain.Notification
}

func (f *recordForwarder) Forward(ctx context.Context, n ndomain.Notification) error {
	f.mu.Lock()
	f.got = append(f.got, n)
	f.mu.Unlock()
	return nil
}

func (f *recordForwarder) senders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.got))
	for _, n := range f.got {
		out = append(out, n.SenderUsername)
	}
	return out
}

// 通知端 session 透過真實 socket 接上 server: 初始清單, 即時通知, 全部已讀
func TestNotifierSessionAgainstServer(t *testing.T) {
	s := newTestServer(t)
	addr := s.listen(t)

	_, err := s.unseen.Append(context.Background(), 7, ndomain.Notification{SenderUsername: "carol", MessagePreview: "yo"})
	require.NoError(t, err)

	baseURL := "http://" + addr
	bob := tokenFor(t, 7, "bob")
	marker, err := nrepo.NewMarkSeenClient(baseURL, bob, "csrf-1")
	require.NoError(t, err)

	forwarder := &recordForwarder{}
	gate := napp.NewPermissionGate(nrepo.NewMemoryPermissionStore(ndomain.PermissionGranted), nil)
	session := napp.NewSession(napp.SessionConfig{BaseURL: baseURL, UserID: 7, AuthToken: bob, Location: time.UTC}, gate, forwarder, marker, nil)
	require.NoError(t, session.Start(context.Background()))
	t.Cleanup(session.Close)

	// 初始清單到達代表已完成訂閱
	require.Eventually(t, func() bool { return session.Snapshot().Count == 1 }, 3*time.Second, 10*time.Millisecond)

	alice := tokenFor(t, 3, "alice")
	req, err := http.NewRequest(http.MethodPost, baseURL+"/notifications/7/?auth="+alice, strings.NewReader(`{"message":"lunch?"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Eventually(t, func() bool { return session.Snapshot().Count == 2 }, 3*time.Second, 10*time.Millisecond)
	state := session.Snapshot()
	assert.Equal(t, "carol", state.Notifications[0].SenderUsername)
	assert.Equal(t, "alice", state.Notifications[1].SenderUsername)
	require.Eventually(t, func() bool { return len(forwarder.senders()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alice"}, forwarder.senders())

	require.NoError(t, session.MarkAllAsRead(context.Background()))
	assert.Equal(t, 0, session.Snapshot().Count)

	list, err := s.unseen.List(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// recordingSubscriber keeps every handler so a test can fire one after its socket is gone
type recordingSubscriber struct {
	*repository.MemoryPubSub

	mu           sync.Mutex
	handlers     []func([]byte)
	unsubscribed int32
}

func (r *recordingSubscriber) Subscribe(ctx context.Context, channel string, handler func([]byte)) (func(), error) {
	unsubscribe, err := r.MemoryPubSub.Subscribe(ctx, channel, handler)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	r.mu.Unlock()
	return func() {
		unsubscribe()
		atomic.AddInt32(&r.unsubscribed, 1)
	}, nil
}

func (r *recordingSubscriber) handler(i int) func([]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[i]
}

func dialNotifications(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/notification/7/?auth="+token, nil)
	require.NoError(t, err)
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, initial, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(initial), "unseen_notifications")
	return ws
}

// 已關閉連線的 handler 晚到時, 不能寫進重用同一個 conn 的新連線
func TestNotificationSocket_LateFrameAfterClose(t *testing.T) {
	bus := repository.NewMemoryPubSub()
	rec := &recordingSubscriber{MemoryPubSub: bus}
	s := newTestServerWith(t, bus, rec)
	addr := s.listen(t)
	bob := tokenFor(t, 7, "bob")

	first := dialNotifications(t, addr, bob)
	first.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	first.Close()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&rec.unsubscribed) == 1 }, 3*time.Second, 10*time.Millisecond)

	second := dialNotifications(t, addr, bob)
	defer second.Close()

	assert.NotPanics(t, func() { rec.handler(0)([]byte(`{"stale":true}`)) })

	alice := tokenFor(t, 3, "alice")
	req, err := http.NewRequest(http.MethodPost, "http://"+addr+"/notifications/7/?auth="+alice, strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	_, next, err := second.ReadMessage()
	require.NoError(t, err)
	assert.NotContains(t, string(next), "stale")
	assert.Contains(t, string(next), "alice")
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "notification:user:7", domain.Channel(7))
	assert.Equal(t, "notification:unseen:7", domain.UnseenKey(7))
}
