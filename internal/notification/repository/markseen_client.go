package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"chat_notifier/internal/notification/domain"
	"chat_notifier/pkg/middlewares"
)

const (
	// MarkSeenPath mark every unseen notification as seen
	MarkSeenPath = "/mark-notifications-seen/"
	// CSRFCookie cookie the CSRF token is read from
	CSRFCookie = middlewares.CookieCSRF
	// CSRFHeader header the CSRF token is echoed in
	CSRFHeader = middlewares.HeaderCSRF
)

// MarkSeenClient POSTs mark-as-seen with the CSRF token taken from its cookie jar
type MarkSeenClient struct {
	base   *url.URL
	client *http.Client
}

// NewMarkSeenClient seed the jar with the auth and csrf cookies of the chat server
func NewMarkSeenClient(baseURL, authToken, csrfToken string) (*MarkSeenClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	var cookies []*http.Cookie
	if authToken != "" {
		cookies = append(cookies, &http.Cookie{Name: middlewares.CookieToken, Value: authToken, Path: "/"})
	}
	if csrfToken != "" {
		cookies = append(cookies, &http.Cookie{Name: CSRFCookie, Value: csrfToken, Path: "/"})
	}
	jar.SetCookies(base, cookies)

	return &MarkSeenClient{
		base:   base,
		client: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

func (c *MarkSeenClient) csrfToken(u *url.URL) string {
	for _, ck := range c.client.Jar.Cookies(u) {
		if ck.Name == CSRFCookie {
			return ck.Value
		}
	}
	return ""
}

// MarkSeen empty-body POST, the answer must be JSON {success}
func (c *MarkSeenClient) MarkSeen(ctx context.Context) (domain.MarkSeenResponse, error) {
	var out domain.MarkSeenResponse

	u := c.base.ResolveReference(&url.URL{Path: c.base.Path + MarkSeenPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CSRFHeader, c.csrfToken(u))

	resp, err := c.client.Do(req)
	if err != nil {
		return out, fmt.Errorf("post %s: %w", MarkSeenPath, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return out, fmt.Errorf("read %s response: %w", MarkSeenPath, err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode %s response (status %d): %w", MarkSeenPath, resp.StatusCode, err)
	}
	return out, nil
}
