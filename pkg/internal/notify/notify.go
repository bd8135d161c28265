package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/docvault/pkg/configs"
	nlog "github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/queue"
)

// ErrNoAddress 无法确定收件地址.
var ErrNoAddress = errors.New("notify: no mail address for user")

var overrideTmpl = template.Must(template.New("override").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body>
<p>Hi {{.Previous}},</p>
<p>{{.Holder}} has taken over editing of <strong>{{.Title}}</strong>. Changes you have not saved may be lost.</p>
{{if .URL}}<p><a href="{{.URL}}">Open the document</a></p>{{end}}
<p style="font-size:12px;color:#666">This is an automated notification from DocVault.</p>
</body>
</html>`))

// Notifier 渲染并发送通知.
type Notifier struct {
	mailer Mailer
	conf   configs.MailConfig
}

// New 创建 Notifier.
func New(mailer Mailer, conf configs.MailConfig) *Notifier {
	return &Notifier{mailer: mailer, conf: conf}
}

// Address 把用户标识转为邮箱.
func (n *Notifier) Address(user string) (string, error) {
	if strings.Contains(user, "@") {
		return user, nil
	}

	if user == "" || n.conf.Domain == "" {
		return "", fmt.Errorf("%w: %q", ErrNoAddress, user)
	}

	return user + "@" + n.conf.Domain, nil
}

// LockOverridden 通知原持有人锁已被接管.
func (n *Notifier) LockOverridden(ctx context.Context, p queue.LockOverriddenPayload) error {
	to, err := n.Address(p.PreviousHolder)
	if err != nil {
		return err
	}

	title := p.Document.Title
	if title == "" {
		title = p.Document.Slug
	}

	data := struct {
		Subject, Previous, Holder, Title, URL string
	}{
		Subject:  fmt.Sprintf("%s took over editing of %s", p.NewHolder, title),
		Previous: p.PreviousHolder,
		Holder:   p.NewHolder,
		Title:    title,
	}

	if n.conf.BaseURL != "" && p.Document.Slug != "" {
		data.URL = strings.TrimSuffix(n.conf.BaseURL, "/") + "/documents/" + p.Document.Slug
	}

	var body bytes.Buffer
	if err := overrideTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render override mail: %w", err)
	}

	return n.mailer.Send(ctx, to, data.Subject, body.String())
}

// Consumer 订阅锁接管事件并发送邮件.
type Consumer struct {
	sub      message.Subscriber
	notifier *Notifier
}

// NewConsumer 创建 Consumer.
func NewConsumer(sub message.Subscriber, notifier *Notifier) *Consumer {
	return &Consumer{sub: sub, notifier: notifier}
}

// Run 阻塞消费直到 ctx 取消.发送失败只记录日志，不重投.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.sub.Subscribe(ctx, queue.TopicLockOverridden)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", queue.TopicLockOverridden, err)
	}

	l := nlog.Logger()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}

			c.handle(ctx, msg)
			msg.Ack()

			l.Debug().Str("msg_id", msg.UUID).Msg("lock override event handled")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	l := nlog.Logger()

	env, err := queue.ParseLockOverridden(msg)
	if err != nil {
		l.Warn().Err(err).Str("msg_id", msg.UUID).Msg("malformed lock override event")

		return
	}

	p := env.Payload
	if !p.Notify {
		return
	}

	if err := c.notifier.LockOverridden(ctx, p); err != nil {
		l.Warn().Err(err).
			Uint("doc_id", p.Document.ID).
			Str("holder", p.NewHolder).
			Str("previous_holder", p.PreviousHolder).
			Msg("send lock override notice failed")

		return
	}

	l.Info().
		Uint("doc_id", p.Document.ID).
		Str("previous_holder", p.PreviousHolder).
		Msg("lock override notice sent")
}
