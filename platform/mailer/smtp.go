package mailer

import (
	"fmt"
	"io"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"github.com/soiree/soiree/platform/generate"
)

type smtpService struct {
	dialer *gomail.Dialer
	domain string
	from   string
}

// SMTPService returns a Service implementation backed by an SMTP relay.
func SMTPService(host string, port int, user, password, from string) Service {
	dialer := gomail.NewDialer(host, port, user, password)
	dialer.SSL = port == 465

	return &smtpService{
		dialer: dialer,
		domain: domainOf(from),
		from:   from,
	}
}

func (s *smtpService) Send(msg *Message) (string, error) {
	var (
		m         = gomail.NewMessage()
		messageID = fmt.Sprintf("<%s@%s>", generate.RandomStringSafe(24), s.domain)
	)

	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", msg.Text)

	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, a := range msg.Attachments {
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(copyContent(a.Content)),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}),
		}

		if a.Inline {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-ID": {fmt.Sprintf("<%s>", a.CID)},
			}))

			m.Embed(a.Filename, settings...)
			continue
		}

		m.Attach(a.Filename, settings...)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", err
	}

	return messageID, nil
}

func copyContent(content []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	}
}

func domainOf(from string) string {
	if idx := strings.LastIndex(from, "@"); idx >= 0 {
		return strings.TrimRight(from[idx+1:], ">")
	}

	return "localhost"
}
