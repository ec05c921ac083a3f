package authhttp

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/open-rails/linkconfirm/core"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title     string
	Bootstrap bool

	Message string
	IsError bool

	ShowForm   bool
	FormAction string
	Ticket     string

	RedirectTo      string
	RedirectSeconds string
}

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() *pageRenderer {
	return &pageRenderer{tmpl: template.Must(template.ParseFS(templateFS, "templates/page.html"))}
}

func titleFor(flow core.Flow) string {
	if flow == core.FlowEmailConfirm {
		return "Email Confirmation"
	}
	return "Reset Password"
}

// resultPage turns a result into page data. A validated recovery link and a
// failed submission that kept its ticket both render the password form.
func resultPage(res core.ConfirmationResult, formAction string) pageData {
	msg, isErr := core.Status(res)
	d := pageData{Title: titleFor(res.Flow), Message: msg, IsError: isErr}
	if res.ResetTicket != "" {
		d.ShowForm = true
		d.FormAction = formAction
		d.Ticket = res.ResetTicket
	}
	if res.OK() && res.RedirectTo != "" {
		d.RedirectTo = res.RedirectTo
		d.RedirectSeconds = strconv.Itoa(int(res.RedirectAfter.Seconds()))
	}
	return d
}

func (p *pageRenderer) render(w http.ResponseWriter, r *http.Request, status int, d pageData) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "page.html", d); err != nil {
		log.WithContext(r.Context()).WithError(err).Error("linkconfirm: render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
