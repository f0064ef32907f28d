package view

import (
	"html/template"
	"io"
	"sync"
)

var fragment = template.Must(template.New("notifications").Parse(`<span id="count_badge" style="display: {{if .BadgeVisible}}inline{{else}}none{{end}}">{{.BadgeText}}</span>
<div id="notification-dropdown" class="notification-dropdown">
{{- if not .Items}}
<p class="notification-empty">{{.EmptyText}}</p>
{{- else}}
{{- range .Items}}
<a class="notification-item" href="{{.Link}}">
<p><strong>{{.Sender}}</strong> messaged you</p>
<p class="notification-time">{{.Time}}</p>
{{- if .Preview}}
<p class="notification-preview">{{.Preview}}</p>
{{- end}}
</a>
{{- end}}
{{- if .ShowMarkAll}}
<button class="mark-all-read-btn">Mark all as Read</button>
{{- end}}
{{- end}}
</div>
`))

// HTMLRenderer writes the badge and dropdown as an HTML fragment, previews are escaped
type HTMLRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewHTMLRenderer render to out
func NewHTMLRenderer(out io.Writer) *HTMLRenderer {
	return &HTMLRenderer{out: out}
}

// Render write one fragment
func (r *HTMLRenderer) Render(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fragment.Execute(r.out, v)
}

// NopRenderer discards every view
type NopRenderer struct{}

// Render nothing
func (NopRenderer) Render(View) error { return nil }
