package main

import (
	"context"
	"encoding/base64"
	"errors"
	"html/template"
	"net/http"

	"github.com/fps2me/fpsqr/form"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/internal/logger"
	"github.com/fps2me/fpsqr/internal/session"
	"github.com/fps2me/fpsqr/labels"
	"github.com/fps2me/fpsqr/render"
)

var pageTemplate = template.Must(template.New("qr").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Text.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:40rem;margin:2rem auto;padding:0 1rem;color:#111}
label{display:block;margin-top:1rem;font-weight:600}
input,select{width:100%;padding:.5rem;font-size:1rem;box-sizing:border-box}
.hint{color:#555;font-size:.9rem}
.error{color:#b00020;font-size:.9rem}
.result{margin-top:2rem;text-align:center}
code{word-break:break-all;font-size:.8rem}
button{margin-top:1.5rem;padding:.75rem 1.5rem;font-size:1rem}
</style>
</head>
<body>
<h1>{{.Text.Title}}</h1>
<form method="post" action="/qr">
<label for="primary">{{.Text.Primary}}</label>
<input id="primary" name="primary" value="{{.Form.Primary}}" autocomplete="off">
{{if .KindLabel}}<div class="hint">{{.KindLabel}}</div>{{end}}
{{with .Problems.identifier}}<div class="error">{{.}}</div>{{end}}

<label for="confirm">{{.Text.Confirm}}</label>
<input id="confirm" name="confirm" value="{{.Form.Confirm}}" autocomplete="off">
{{with .Problems.confirm}}<div class="error">{{.}}</div>{{end}}

<label for="amount">{{.Text.Amount}}</label>
<input id="amount" name="amount" inputmode="decimal" value="{{.Form.Amount}}">
{{with .Problems.amount}}<div class="error">{{.}}</div>{{end}}

<label for="currency">{{.Text.Currency}}</label>
<select id="currency" name="currency">
{{range .Currencies}}<option value="{{.}}"{{if eq . $.Form.Currency}} selected{{end}}>{{.}}</option>
{{end}}</select>
{{with .Problems.currency}}<div class="error">{{.}}</div>{{end}}

<button type="submit" name="action" value="generate">{{.Text.Submit}}</button>
</form>

<div class="result">
{{if .ImageURI}}
<img src="{{.ImageURI}}" width="{{.Size}}" height="{{.Size}}" alt="FPS QR code">
<p class="hint">{{.Text.ScanHint}}</p>
<p>{{.Text.Payload}}: <code>{{.Snapshot.Payload}}</code></p>
{{else if .Failure}}
<p class="error">{{.Failure}}</p>
{{else}}
<p class="hint">{{.Text.Placeholder}}</p>
{{end}}
</div>
</body>
</html>
`))

type pageText struct {
	Title, Primary, Confirm, Amount, Currency, Submit, ScanHint, Placeholder, Payload string
}

type pageData struct {
	Lang       string
	Text       pageText
	Form       form.State
	KindLabel  string
	Problems   map[string]string
	Currencies []generation.Currency
	Snapshot   generation.Snapshot
	ImageURI   template.URL
	Size       int
	Failure    string
}

// Form page handler
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.renderPage(w, r, sess, false)
}

// Form submit handler. Submitting counts as leaving both identifier fields.
func (s *Server) handlePageSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	sess.Apply(
		form.Edited{Field: form.FieldPrimary, Value: r.PostFormValue("primary")},
		form.Edited{Field: form.FieldConfirm, Value: r.PostFormValue("confirm")},
		form.Edited{Field: form.FieldAmount, Value: r.PostFormValue("amount")},
		form.Edited{Field: form.FieldCurrency, Value: r.PostFormValue("currency")},
		form.Blurred{Field: form.FieldPrimary},
		form.Blurred{Field: form.FieldConfirm},
	)

	s.renderPage(w, r, sess, r.PostFormValue("action") == "generate")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, sess *session.Session, generate bool) {
	tag := labels.Match(r.Header.Get("Accept-Language"))
	if lang := r.URL.Query().Get("lang"); lang != "" {
		tag = labels.Match(lang)
	}
	printer := labels.For(tag)

	st := sess.Form()
	view := form.Project(st, s.engine)

	data := pageData{
		Lang: tag.String(),
		Text: pageText{
			Title:       printer.Sprintf(labels.Title),
			Primary:     printer.Sprintf(labels.PrimaryLabel),
			Confirm:     printer.Sprintf(labels.ConfirmLabel),
			Amount:      printer.Sprintf(labels.AmountLabel),
			Currency:    printer.Sprintf(labels.CurrencyLabel),
			Submit:      printer.Sprintf(labels.Submit),
			ScanHint:    printer.Sprintf(labels.ScanHint),
			Payload:     printer.Sprintf(labels.PayloadCaption),
			Placeholder: printer.Sprintf(labels.Placeholder),
		},
		Form:       st,
		Problems:   make(map[string]string),
		Currencies: []generation.Currency{generation.CurrencyHKD, generation.CurrencyCNY},
		Size:       s.render.Size,
	}
	if view.Identifier.Canonical != "" {
		data.KindLabel = printer.Sprintf(labels.Detected, printer.Kind(view.Identifier.Kind))
	}
	for _, p := range view.Problems {
		data.Problems[p.Field] = printer.Validation(p)
	}

	attempted := false
	if generate {
		if req, err := view.Request(); err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Generation.Timeout.Std())
			_, err := sess.Controller.Generate(ctx, req)
			cancel()
			if errors.Is(err, generation.ErrBusy) {
				data.Failure = printer.Sprintf(labels.Busy)
			} else {
				attempted = true
			}
		}
	}

	snap := sess.Controller.Snapshot()
	if attempted || snap.State == generation.StatePending {
		data.Snapshot = snap
		switch snap.State {
		case generation.StateSucceeded:
			png, err := render.PNG(snap.Payload, s.render)
			if err != nil {
				logger.Error("failed to render qr code", "requestId", snap.RequestID, "error", err)
				data.Failure = printer.Sprintf(labels.Failed, err.Error())
				break
			}
			data.ImageURI = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
		case generation.StateFailed:
			data.Failure = printer.Sprintf(labels.Failed, snap.Reason)
		case generation.StatePending:
			data.Failure = printer.Sprintf(labels.Pending)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		logger.Error("failed to render page", "error", err)
	}
}
