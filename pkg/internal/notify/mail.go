// Package notify 消费文档事件并发送邮件通知.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/yeisme/docvault/pkg/configs"
)

// Mailer 邮件发送.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer 通过 SMTP 发送 HTML 邮件.
type SMTPMailer struct {
	conf configs.MailConfig
}

// NewSMTPMailer 创建 SMTP 发送器.
func NewSMTPMailer(conf configs.MailConfig) *SMTPMailer {
	return &SMTPMailer{conf: conf}
}

// Send 实现 Mailer.
func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	from := m.conf.From
	if m.conf.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.conf.FromName, m.conf.From)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		from, to, subject, htmlBody,
	))

	addr := net.JoinHostPort(m.conf.Host, strconv.Itoa(m.conf.Port))

	var auth smtp.Auth
	if m.conf.Username != "" && m.conf.Password != "" {
		auth = smtp.PlainAuth("", m.conf.Username, m.conf.Password, m.conf.Host)
	}

	if m.conf.StartTLS {
		return m.sendStartTLS(addr, auth, to, msg)
	}

	return smtp.SendMail(addr, auth, m.conf.From, []string{to}, msg)
}

func (m *SMTPMailer) sendStartTLS(addr string, auth smtp.Auth, to string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connect smtp %s: %w", addr, err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.conf.Host, MinVersion: tls.VersionTLS12}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.conf.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}

	return client.Quit()
}
