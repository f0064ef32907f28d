package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_notifier/internal/serviceworker/domain"
	errprocess "chat_notifier/pkg/err"
	"chat_notifier/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func startWorker(t *testing.T, d Displayer, c Clients) *Worker {
	t.Helper()
	w := NewWorker("/service_worker/sw.js", d, c, 8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	require.NoError(t, w.Install(ctx))
	require.NoError(t, w.Activate(ctx))
	return w
}

// flush 利用 FIFO 等先前的事件處理完
func flush(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := w.Request(ctx, domain.Message{Type: "PING"})
	require.NoError(t, err)
}

func aliceMessage() domain.Message {
	return domain.Message{
		Type:  domain.ShowNotification,
		Title: "alice sent you a message",
		Options: domain.NotificationOptions{
			Body: "hi",
			Data: domain.NotificationData{URL: "/chat/alice/"},
		},
	}
}

func TestWorker_Lifecycle(t *testing.T) {
	w := NewWorker("/service_worker/sw.js", new(MockDisplayer), nil, 1)
	assert.Equal(t, domain.StateParsed, w.State())

	claimed := false
	w.claim = func(*Worker) { claimed = true }

	require.NoError(t, w.Install(context.Background()))
	assert.Equal(t, domain.StateInstalled, w.State())
	assert.True(t, w.SkippedWaiting())

	require.NoError(t, w.Activate(context.Background()))
	assert.Equal(t, domain.StateActivated, w.State())
	assert.True(t, claimed)

	assert.Error(t, w.Install(context.Background()))

	w.Stop()
	assert.Equal(t, domain.StateRedundant, w.State())
}

func TestWorker_ShowNotification(t *testing.T) {
	d := new(MockDisplayer)
	d.On("Show", mock.Anything, mock.MatchedBy(func(n domain.DisplayedNotification) bool {
		return n.Title == "alice sent you a message" && n.Options.Data.URL == "/chat/alice/"
	})).Return(nil).Once()

	w := startWorker(t, d, nil)

	require.NoError(t, w.PostMessage(context.Background(), aliceMessage()))
	flush(t, w)

	d.AssertNumberOfCalls(t, "Show", 1)
	shown := w.Displayed()
	require.Len(t, shown, 1)
	assert.Equal(t, "alice sent you a message", shown[0].Title)
}

func TestWorker_ShowNotificationDefaultTitle(t *testing.T) {
	d := new(MockDisplayer)
	d.On("Show", mock.Anything, mock.MatchedBy(func(n domain.DisplayedNotification) bool {
		return n.Title == "Notification"
	})).Return(nil).Once()

	w := startWorker(t, d, nil)
	reply, err := w.Request(context.Background(), domain.Message{Type: domain.ShowNotification})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.NotEmpty(t, reply.ID)
	d.AssertExpectations(t)
}

func TestWorker_DisplayErrorIsContained(t *testing.T) {
	d := new(MockDisplayer)
	d.On("Show", mock.Anything, mock.Anything).Return(errors.New("no display")).Once()
	d.On("Show", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(nil).Once()

	w := startWorker(t, d, nil)

	reply, err := w.Request(context.Background(), aliceMessage())
	require.NoError(t, err)
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "no display")

	reply, err = w.Request(context.Background(), aliceMessage())
	require.NoError(t, err)
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "panic")

	assert.Empty(t, w.Displayed())
	assert.Equal(t, domain.StateActivated, w.State())
}

func TestWorker_IgnoresOtherMessageTypes(t *testing.T) {
	d := new(MockDisplayer)
	w := startWorker(t, d, nil)

	reply, err := w.Request(context.Background(), domain.Message{Type: "SOMETHING_ELSE", Title: "x"})
	require.NoError(t, err)
	assert.False(t, reply.OK)
	d.AssertNotCalled(t, "Show", mock.Anything, mock.Anything)
}

func TestWorker_ClickFocusesFirstMatchingClient(t *testing.T) {
	d := new(MockDisplayer)
	d.On("Show", mock.Anything, mock.Anything).Return(nil)
	d.On("Close", mock.Anything, mock.Anything).Return(nil).Once()

	c := new(MockClients)
	c.On("MatchAll", mock.Anything).Return([]domain.WindowClient{
		{ID: "w1", URL: "http://localhost:8000/"},
		{ID: "w2", URL: "http://localhost:8000/chat/alice/"},
		{ID: "w3", URL: "http://localhost:8000/chat/alice/", Focused: true},
	}, nil)
	c.On("Focus", mock.Anything, "w2").Return(nil).Once()

	w := startWorker(t, d, c)
	require.NoError(t, w.PostMessage(context.Background(), aliceMessage()))
	flush(t, w)

	shown := w.Displayed()
	require.Len(t, shown, 1)
	require.NoError(t, w.DispatchClick(shown[0].ID))
	flush(t, w)

	c.AssertExpectations(t)
	c.AssertNotCalled(t, "OpenWindow", mock.Anything, mock.Anything)
	d.AssertCalled(t, "Close", mock.Anything, shown[0].ID)
	assert.Empty(t, w.Displayed())
}

func TestWorker_ClickOpensWindowWhenNoMatch(t *testing.T) {
	d := new(MockDisplayer)
	d.On("Show", mock.Anything, mock.Anything).Return(nil)
	d.On("Close", mock.Anything, mock.Anything).Return(nil)

	c := new(MockClients)
	c.On("MatchAll", mock.Anything).Return([]domain.WindowClient{
		{ID: "w1", URL: "http://localhost:8000/chat/bob/"},
	}, nil)
	c.On("OpenWindow", mock.Anything, "/chat/alice/").Return(nil).Once()

	w := startWorker(t, d, c)
	require.NoError(t, w.PostMessage(context.Background(), aliceMessage()))
	flush(t, w)

	require.NoError(t, w.DispatchClick(w.Displayed()[0].ID))
	flush(t, w)

	c.AssertExpectations(t)
	c.AssertNotCalled(t, "Focus", mock.Anything, mock.Anything)
}

func TestWorker_ClickWithoutURLOnlyCloses(t *testing.T) {
	d := new(MockDisplayer)
	d.On("Show", mock.Anything, mock.Anything).Return(nil)
	d.On("Close", mock.Anything, mock.Anything).Return(nil).Once()
	c := new(MockClients)

	w := startWorker(t, d, c)
	require.NoError(t, w.PostMessage(context.Background(), domain.Message{Type: domain.ShowNotification, Title: "t"}))
	flush(t, w)

	require.NoError(t, w.DispatchClick(w.Displayed()[0].ID))
	flush(t, w)

	d.AssertExpectations(t)
	c.AssertNotCalled(t, "MatchAll", mock.Anything)
}

func TestWorker_ClickUnknownNotification(t *testing.T) {
	w := startWorker(t, new(MockDisplayer), nil)
	assert.Error(t, w.DispatchClick("missing"))
}

func TestWorker_PostAfterStop(t *testing.T) {
	w := startWorker(t, new(MockDisplayer), nil)
	w.Stop()
	assert.ErrorIs(t, w.PostMessage(context.Background(), aliceMessage()), errprocess.ErrWorkerStopped)

	_, err := w.Request(context.Background(), aliceMessage())
	assert.ErrorIs(t, err, errprocess.ErrWorkerStopped)
}

func TestWorker_DisplayedOldestFirst(t *testing.T) {
	d := new(MockDisplayer)
	d.On("Show", mock.Anything, mock.Anything).Return(nil)
	w := startWorker(t, d, nil)

	for _, title := range []string{"first", "second", "third"} {
		_, err := w.Request(context.Background(), domain.Message{Type: domain.ShowNotification, Title: title})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	shown := w.Displayed()
	require.Len(t, shown, 3)
	assert.Equal(t, "first", shown[0].Title)
	assert.Equal(t, "third", shown[2].Title)
}

func TestWorker_PostMessageFullInboxHonoursContext(t *testing.T) {
	// Run 未啟動, inbox 不會被消化
	w := NewWorker("/service_worker/sw.js", new(MockDisplayer), nil, 1)
	require.NoError(t, w.PostMessage(context.Background(), aliceMessage()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.PostMessage(ctx, aliceMessage()), context.DeadlineExceeded)
}
