package otp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers codes over plain SMTP. Used with a local relay in
// development; production deployments point it at a real submission host.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender creates a sender targeting the given SMTP host:port.
func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

func (s *SMTPSender) Send(_ context.Context, email, code string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + email,
		"Subject: Your verification code",
		"",
		fmt.Sprintf("Your verification code is %s. It expires in a few minutes.", code),
	}, "\r\n")
	if err := smtp.SendMail(s.addr, nil, s.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
