// Package mailer abstracts the outbound mail relay.
package mailer

// Attachment carries binary content attached to a Message. Inline
// attachments are referenced from the HTML body via their CID.
type Attachment struct {
	CID         string
	Content     []byte
	ContentType string
	Filename    string
	Inline      bool
}

// Message is one outbound email.
type Message struct {
	Attachments []Attachment
	HTML        string
	Subject     string
	Text        string
	To          string
}

// Service hands messages to the external transport and returns the provider
// message id.
type Service interface {
	Send(*Message) (string, error)
}
