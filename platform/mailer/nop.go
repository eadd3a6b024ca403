package mailer

import "fmt"

type nopService struct{}

// NopService returns a Service implementation which discards all messages,
// used for local development without a relay.
func NopService() Service {
	return &nopService{}
}

func (s *nopService) Send(msg *Message) (string, error) {
	return fmt.Sprintf("<nop-%s>", msg.To), nil
}
