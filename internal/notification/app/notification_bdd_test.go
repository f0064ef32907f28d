package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat_notifier/internal/notification/domain"
	swdomain "chat_notifier/internal/serviceworker/domain"

	"github.com/cucumber/godog"
)

type memoryPermission struct {
	mu sync.Mutex
	p  domain.Permission
}

func (m *memoryPermission) Load(ctx context.Context) (domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p, nil
}

func (m *memoryPermission) Save(ctx context.Context, p domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.p = p
	return nil
}

type recordPort struct {
	mu   sync.Mutex
	msgs []swdomain.Message
}

func (p *recordPort) PostMessage(ctx context.Context, msg swdomain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type fixedMarker struct {
	success bool
}

func (m *fixedMarker) MarkSeen(ctx context.Context) (domain.MarkSeenResponse, error) {
	return domain.MarkSeenResponse{Success: m.success}, nil
}

type dropdownWorld struct {
	session    *Session
	renderer   *recordRenderer
	permission *memoryPermission
	port       *recordPort
	marker     *fixedMarker
}

func (w *dropdownWorld) sessionObservedAt(now, zone string) error {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return err
	}
	at, err := time.Parse(time.RFC3339, now)
	if err != nil {
		return err
	}

	w.renderer = &recordRenderer{}
	w.permission = &memoryPermission{p: domain.PermissionDefault}
	w.port = &recordPort{}
	w.marker = &fixedMarker{}

	gate := NewPermissionGate(w.permission, nil)
	relay := NewRelay(controlledContainer{port: w.port}, "")
	w.session = NewSession(SessionConfig{BaseURL: "http://localhost:8000", UserID: 1, Location: loc}, gate, relay, w.marker, w.renderer)
	w.session.now = func() time.Time { return at }
	w.session.startLoop(context.Background())
	return nil
}

func (w *dropdownWorld) socketDelivers(doc *godog.DocString) error {
	w.session.Deliver([]byte(doc.Content))
	w.session.Snapshot()
	w.session.displays.Wait()
	return nil
}

func (w *dropdownWorld) permissionIs(p string) error {
	perm, err := domain.ParsePermission(p)
	if err != nil {
		return err
	}
	return w.permission.Save(context.Background(), perm)
}

func (w *dropdownWorld) markSeenAnswers(success string) error {
	w.marker.success = success == "true"
	return nil
}

func (w *dropdownWorld) userMarksAllAsRead() error {
	// 失敗只記 log, 這裡只看狀態
	_ = w.session.MarkAllAsRead(context.Background())
	w.session.Snapshot()
	return nil
}

func (w *dropdownWorld) badgeShows(text string) error {
	v := w.renderer.last()
	if !v.BadgeVisible || v.BadgeText != text {
		return fmt.Errorf("badge visible=%v text=%q, want %q", v.BadgeVisible, v.BadgeText, text)
	}
	return nil
}

func (w *dropdownWorld) badgeHidden() error {
	if v := w.renderer.last(); v.BadgeVisible {
		return fmt.Errorf("badge still visible with %q", v.BadgeText)
	}
	return nil
}

func (w *dropdownWorld) dropdownEntries(n int) error {
	if got := len(w.renderer.last().Items); got != n {
		return fmt.Errorf("dropdown has %d entries, want %d", got, n)
	}
	return nil
}

func (w *dropdownWorld) entryReads(i int, title, at string) error {
	items := w.renderer.last().Items
	if i < 1 || i > len(items) {
		return fmt.Errorf("no entry %d", i)
	}
	it := items[i-1]
	if it.Title != title || it.Time != at {
		return fmt.Errorf("entry %d is %q at %q", i, it.Title, it.Time)
	}
	return nil
}

func (w *dropdownWorld) dropdownOffers(label string) error {
	if !w.renderer.last().ShowMarkAll {
		return fmt.Errorf("dropdown does not offer %q", label)
	}
	return nil
}

func (w *dropdownWorld) dropdownSays(text string) error {
	if got := w.renderer.last().EmptyText; got != text {
		return fmt.Errorf("dropdown says %q", got)
	}
	return nil
}

func (w *dropdownWorld) relayedTitled(n int, title, link string) error {
	w.port.mu.Lock()
	defer w.port.mu.Unlock()
	if len(w.port.msgs) != n {
		return fmt.Errorf("%d notifications relayed, want %d", len(w.port.msgs), n)
	}
	for _, m := range w.port.msgs {
		if m.Title != title || m.Options.Data.URL != link {
			return fmt.Errorf("relayed %q -> %q", m.Title, m.Options.Data.URL)
		}
	}
	return nil
}

func (w *dropdownWorld) relayedNone(n int) error {
	return w.relayedTitled(n, "", "")
}

func initializeDropdownScenario(sc *godog.ScenarioContext) {
	w := &dropdownWorld{}

	sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
		if w.session != nil {
			w.session.Close()
		}
		return ctx, nil
	})

	sc.Step(`^a notifier session observed at "([^"]*)" in "([^"]*)"$`, w.sessionObservedAt)
	sc.Step(`^the socket delivers:$`, w.socketDelivers)
	sc.Step(`^notification permission is "([^"]*)"$`, w.permissionIs)
	sc.Step(`^the server answers mark-as-seen with success "(true|false)"$`, w.markSeenAnswers)
	sc.Step(`^the user marks all as read$`, w.userMarksAllAsRead)
	sc.Step(`^the badge shows "([^"]*)"$`, w.badgeShows)
	sc.Step(`^the badge is hidden$`, w.badgeHidden)
	sc.Step(`^the dropdown shows (\d+) entry$`, w.dropdownEntries)
	sc.Step(`^entry (\d+) reads "([^"]*)" at "([^"]*)"$`, w.entryReads)
	sc.Step(`^the dropdown offers "([^"]*)"$`, w.dropdownOffers)
	sc.Step(`^the dropdown says "([^"]*)"$`, w.dropdownSays)
	sc.Step(`^(\d+) notification is relayed titled "([^"]*)" linking "([^"]*)"$`, w.relayedTitled)
	sc.Step(`^(\d+) notifications are relayed$`, w.relayedNone)
}

func TestNotificationDropdownFeature(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "notification_dropdown",
		ScenarioInitializer: initializeDropdownScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("notification dropdown scenarios failed")
	}
}
