// Package view turns an unseen-notification snapshot into what the badge and
// dropdown show. Build is pure; renderers only draw its result.
package view

import (
	"fmt"
	"time"

	"chat_notifier/internal/notification/domain"
)

const (
	// EmptyText dropdown text when nothing is unseen
	EmptyText = "No new notifications"
	// MarkAllText label of the mark-as-read action
	MarkAllText = "Mark all as Read"
)

// Item one dropdown entry
type Item struct {
	Sender  string
	Title   string
	Time    string
	Preview string
	Link    string
}

// View badge and dropdown derived from one UnseenState snapshot
type View struct {
	BadgeVisible bool
	BadgeText    string
	Items        []Item
	ShowMarkAll  bool
	EmptyText    string
}

// Build derive the whole view from state, relative times are computed against now in loc
func Build(state domain.UnseenState, now time.Time, loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}

	v := View{Items: make([]Item, 0, len(state.Notifications))}
	if state.Count > 0 {
		v.BadgeVisible = true
		v.BadgeText = fmt.Sprintf("%d", state.Count)
	}

	if len(state.Notifications) == 0 {
		v.EmptyText = EmptyText
		return v
	}

	for _, n := range state.Notifications {
		v.Items = append(v.Items, Item{
			Sender:  n.SenderUsername,
			Title:   n.SenderUsername + " messaged you",
			Time:    FormatTimestamp(n.Timestamp, now, loc),
			Preview: n.MessagePreview,
			Link:    n.DeepLink(),
		})
	}
	v.ShowMarkAll = true
	return v
}

// 後端可能送出不帶時區的 isoformat
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(ts string, loc *time.Location) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp relative time of an ISO timestamp as seen by an observer in loc.
// An unparsable timestamp is returned as is.
func FormatTimestamp(ts string, now time.Time, loc *time.Location) string {
	if ts == "" {
		return "just now"
	}
	if loc == nil {
		loc = time.Local
	}
	t, ok := parseTimestamp(ts, loc)
	if !ok {
		return ts
	}

	t = t.In(loc)
	now = now.In(loc)
	clock := t.Format("15:04")

	if sameDay(t, now) {
		return "Today at " + clock
	}
	if sameDay(t, now.AddDate(0, 0, -1)) {
		return "Yesterday at " + clock
	}
	return fmt.Sprintf("%d/%d/%d %s", t.Month(), t.Day(), t.Year(), clock)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
