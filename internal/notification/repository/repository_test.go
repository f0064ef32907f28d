package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat_notifier/internal/notification/domain"
	"chat_notifier/pkg/logger"
	testtool "chat_notifier/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func TestMemoryPermissionStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPermissionStore("")
	p, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDefault, p)

	require.NoError(t, s.Save(ctx, domain.PermissionGranted))
	p, _ = s.Load(ctx)
	assert.Equal(t, domain.PermissionGranted, p)
}

func TestRedisPermissionStore(t *testing.T) {
	addr := testtool.StartRedis(t)
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()

	s := NewRedisPermissionStore(client, 42, domain.PermissionDefault)
	p, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDefault, p)

	require.NoError(t, s.Save(ctx, domain.PermissionDenied))

	// 另一個 notifier 看到同一份
	other := NewRedisPermissionStore(client, 42, domain.PermissionGranted)
	p, err = other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionDenied, p)

	require.NoError(t, client.Set(ctx, PermissionKey(42), `"maybe"`, 0).Err())
	_, err = s.Load(ctx)
	assert.Error(t, err)
}

func TestMarkSeenClient(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{"success", http.StatusOK, `{"success": true}`, true, false},
		{"rejected", http.StatusOK, `{"success": false}`, false, false},
		{"forbidden json", http.StatusForbidden, `{"success": false, "error": "CSRF verification failed"}`, false, false},
		{"not json", http.StatusInternalServerError, `<html>oops</html>`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotMethod, gotPath, gotCSRF, gotType, gotCookieCSRF, gotAuth string
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod, gotPath = r.Method, r.URL.Path
				gotCSRF = r.Header.Get(CSRFHeader)
				gotType = r.Header.Get("Content-Type")
				if c, err := r.Cookie(CSRFCookie); err == nil {
					gotCookieCSRF = c.Value
				}
				if c, err := r.Cookie("auth_token"); err == nil {
					gotAuth = c.Value
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c, err := NewMarkSeenClient(srv.URL+"/", "jwt-token", "csrf-123")
			require.NoError(t, err)

			resp, err := c.MarkSeen(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, resp.Success)
			}

			assert.Equal(t, http.MethodPost, gotMethod)
			assert.Equal(t, MarkSeenPath, gotPath)
			assert.Equal(t, "csrf-123", gotCSRF)
			assert.Equal(t, "csrf-123", gotCookieCSRF)
			assert.Equal(t, "application/json", gotType)
			assert.Equal(t, "jwt-token", gotAuth)
		})
	}
}

func TestMarkSeenClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewMarkSeenClient(url, "", "")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.MarkSeen(ctx)
	assert.Error(t, err)
}

func TestPrompters(t *testing.T) {
	p, err := NewPrompter("grant", io.Discard)
	require.NoError(t, err)
	got, err := p.RequestPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, got)

	p, err = NewPrompter("deny", io.Discard)
	require.NoError(t, err)
	got, _ = p.RequestPermission(context.Background())
	assert.Equal(t, domain.PermissionDenied, got)

	p, err = NewPrompter("interactive", io.Discard)
	require.NoError(t, err)
	assert.IsType(t, &LinePrompter{}, p)

	p, err = NewPrompter("form", io.Discard)
	require.NoError(t, err)
	assert.IsType(t, TerminalPrompter{}, p)

	_, err = NewPrompter("ask-later", io.Discard)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = StaticPrompter{Answer: domain.PermissionGranted}.RequestPermission(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(&out)
	assert.False(t, p.Answer("allow"), "nothing is asking yet")

	ask := func() <-chan domain.Permission {
		got := make(chan domain.Permission, 1)
		go func() {
			perm, err := p.RequestPermission(context.Background())
			assert.NoError(t, err)
			got <- perm
		}()
		require.Eventually(t, p.Pending, time.Second, 5*time.Millisecond)
		return got
	}

	got := ask()
	require.True(t, p.Answer("maybe"))
	require.Eventually(t, func() bool { return p.Answer(" Allow ") }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.PermissionGranted, <-got)

	got = ask()
	require.True(t, p.Answer("block"))
	assert.Equal(t, domain.PermissionDenied, <-got)

	got = ask()
	require.True(t, p.Answer("dismiss"))
	assert.Equal(t, domain.PermissionDefault, <-got)

	assert.False(t, p.Pending())
	assert.False(t, p.Answer("read"), "commands pass through once answered")
	assert.Contains(t, out.String(), "[allow/block/dismiss]")
	assert.Contains(t, out.String(), "answer allow, block or dismiss")
}

func TestLinePrompter_ContextEndsQuestion(t *testing.T) {
	p := NewLinePrompter(io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	perm, err := p.RequestPermission(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.PermissionDefault, perm)
	assert.False(t, p.Pending())
}
