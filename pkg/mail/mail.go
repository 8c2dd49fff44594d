// Package mail renders templated messages and hands them to a delivery backend.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"io/fs"
	netmail "net/mail"
	"path"
	"strings"
	texttmpl "text/template"
)

// Template names shipped with the binary.
const (
	TemplateRegistrationReceived = "registration_received"
	TemplateRegistrationApproved = "registration_approved"
	TemplatePasswordReset        = "password_reset"
)

//go:embed templates/*
var templateFS embed.FS

// Message is a rendered or renderable email.
type Message struct {
	To      []netmail.Address
	Subject string

	Template string
	Data     interface{}

	Text string
	HTML string
}

// HasContent reports whether the message has a body to send.
func (m Message) HasContent() bool {
	return m.Text != "" || m.HTML != ""
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Context is what every template sees.
type Context struct {
	AppName string
	AppURL  string
	Data    interface{}
}

// Renderer executes the embedded text and HTML templates.
type Renderer struct {
	appName string
	appURL  string
	text    map[string]*texttmpl.Template
	html    map[string]*htmltmpl.Template
}

// NewRenderer parses every embedded template once.
func NewRenderer(appName, appURL string) (*Renderer, error) {
	r := &Renderer{
		appName: appName,
		appURL:  strings.TrimRight(appURL, "/"),
		text:    make(map[string]*texttmpl.Template),
		html:    make(map[string]*htmltmpl.Template),
	}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read mail templates: %w", err)
	}
	for _, e := range entries {
		file := e.Name()
		if strings.HasPrefix(file, "_") {
			continue
		}
		ext := path.Ext(file)
		name := strings.TrimSuffix(file, ext)
		switch ext {
		case ".txt":
			t, err := texttmpl.New(file).Option("missingkey=error").ParseFS(templateFS, "templates/_base.txt", "templates/"+file)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", file, err)
			}
			r.text[name] = t
		case ".gohtml":
			t, err := htmltmpl.New(file).Option("missingkey=error").ParseFS(templateFS, "templates/_base.gohtml", "templates/"+file)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", file, err)
			}
			r.html[name] = t
		}
	}
	return r, nil
}

// Render fills Text and HTML from msg.Template. Messages without a template pass through.
func (r *Renderer) Render(msg Message) (Message, error) {
	if msg.Template == "" {
		return msg, nil
	}
	textTmpl, hasText := r.text[msg.Template]
	htmlTmpl, hasHTML := r.html[msg.Template]
	if !hasText && !hasHTML {
		return msg, fmt.Errorf("unknown mail template %q", msg.Template)
	}

	data := Context{AppName: r.appName, AppURL: r.appURL, Data: msg.Data}
	if hasText {
		var buf bytes.Buffer
		if err := textTmpl.ExecuteTemplate(&buf, "base", data); err != nil {
			return msg, fmt.Errorf("render %s text: %w", msg.Template, err)
		}
		msg.Text = buf.String()
	}
	if hasHTML {
		var buf bytes.Buffer
		if err := htmlTmpl.ExecuteTemplate(&buf, "base", data); err != nil {
			return msg, fmt.Errorf("render %s html: %w", msg.Template, err)
		}
		msg.HTML = buf.String()
	}
	return msg, nil
}
