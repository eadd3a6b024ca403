package core

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"github.com/soiree/soiree/platform/mailer"
	"github.com/soiree/soiree/service/event"
	"github.com/soiree/soiree/service/guest"
)

const cardCID = "invite-card"

const inviteHTML = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;font-family:Helvetica,Arial,sans-serif;background:#f4f4f4;">
<div style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;">
<p>Hi {{.GuestName}},</p>
{{if .HasCard}}<img src="cid:{{.CardCID}}" alt="{{.EventTitle}}" style="width:100%;border-radius:6px;"/>{{end}}
<h2 style="margin:16px 0 4px 0;">{{.EventTitle}}</h2>
{{if .EventLocation}}<p style="margin:0;color:#666;">{{.EventLocation}}</p>{{end}}
<p style="white-space:pre-line;">{{.Body}}</p>
<table role="presentation" style="margin:24px 0;"><tr>
<td><a href="{{.ConfirmURL}}" style="background:#1a7f37;color:#ffffff;padding:12px 24px;border-radius:6px;text-decoration:none;">I'll be there</a></td>
<td style="width:12px;"></td>
<td><a href="{{.DeclineURL}}" style="background:#cf222e;color:#ffffff;padding:12px 24px;border-radius:6px;text-decoration:none;">Can't make it</a></td>
</tr></table>
<p style="color:#666;font-size:13px;">Need to add guests or leave a note? <a href="{{.RSVPURL}}">Reply here</a>.</p>
</div>
<img src="{{.PixelURL}}" width="1" height="1" alt=""/>
</body>
</html>`

const inviteText = `Hi {{.GuestName}},

You're invited: {{.EventTitle}}{{if .EventLocation}}
Where: {{.EventLocation}}{{end}}

{{.Body}}

Confirm: {{.ConfirmURL}}
Decline: {{.DeclineURL}}
Add guests or a note: {{.RSVPURL}}
`

var (
	inviteHTMLTmpl = template.Must(template.New("invite").Parse(inviteHTML))
	inviteTextTmpl = texttemplate.Must(texttemplate.New("invite").Parse(inviteText))
)

type inviteVars struct {
	Body          string
	CardCID       string
	ConfirmURL    string
	DeclineURL    string
	EventLocation string
	EventTitle    string
	GuestName     string
	HasCard       bool
	PixelURL      string
	RSVPURL       string
}

func inviteMessage(
	baseURL, subject, body string,
	ev *event.Event,
	g *guest.Guest,
	bearer string,
	card []byte,
) (*mailer.Message, error) {
	vars := inviteVars{
		Body:          body,
		CardCID:       cardCID,
		ConfirmURL:    fmt.Sprintf("%s/0.1/invites/%s/confirm", baseURL, bearer),
		DeclineURL:    fmt.Sprintf("%s/0.1/invites/%s/decline", baseURL, bearer),
		EventLocation: ev.Location,
		EventTitle:    ev.Title,
		GuestName:     g.Name,
		HasCard:       len(card) > 0,
		PixelURL:      fmt.Sprintf("%s/0.1/invites/%s/open.gif", baseURL, bearer),
		RSVPURL:       fmt.Sprintf("%s/rsvp/%s", baseURL, bearer),
	}

	if vars.GuestName == "" {
		vars.GuestName = "there"
	}

	html := &bytes.Buffer{}
	if err := inviteHTMLTmpl.Execute(html, vars); err != nil {
		return nil, err
	}

	text := &bytes.Buffer{}
	if err := inviteTextTmpl.Execute(text, vars); err != nil {
		return nil, err
	}

	msg := &mailer.Message{
		HTML:    html.String(),
		Subject: subject,
		Text:    text.String(),
		To:      g.Email,
	}

	if len(card) > 0 {
		msg.Attachments = []mailer.Attachment{
			{
				CID:         cardCID,
				Content:     card,
				ContentType: "image/jpeg",
				Filename:    "invite.jpg",
				Inline:      true,
			},
		}
	}

	return msg, nil
}
