package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/notify"
	"github.com/yeisme/docvault/pkg/queue"
)

type sent struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sent
	ch   chan sent
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{ch: make(chan sent, 4)}
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := sent{to: to, subject: subject, body: body}
	f.sent = append(f.sent, s)

	select {
	case f.ch <- s:
	default:
	}

	return nil
}

var mailConf = configs.MailConfig{Domain: "example.com", BaseURL: "https://docs.example.com/"}

func TestAddress(t *testing.T) {
	n := notify.New(newFakeMailer(), mailConf)

	addr, err := n.Address("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", addr)

	addr, err = n.Address("bob@corp.test")
	require.NoError(t, err)
	assert.Equal(t, "bob@corp.test", addr)

	_, err = notify.New(newFakeMailer(), configs.MailConfig{}).Address("alice")
	assert.ErrorIs(t, err, notify.ErrNoAddress)
}

func TestLockOverriddenMail(t *testing.T) {
	mailer := newFakeMailer()
	n := notify.New(mailer, mailConf)

	err := n.LockOverridden(context.Background(), queue.LockOverriddenPayload{
		Document:       queue.DocumentRef{ID: 3, Slug: "handbook", Title: "Employee <Handbook>"},
		NewHolder:      "carol",
		PreviousHolder: "alice",
		Notify:         true,
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	m := mailer.sent[0]
	assert.Equal(t, "alice@example.com", m.to)
	assert.Equal(t, "carol took over editing of Employee <Handbook>", m.subject)
	assert.Contains(t, m.body, "Employee &lt;Handbook&gt;")
	assert.Contains(t, m.body, "https://docs.example.com/documents/handbook")
}

func TestConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	mailer := newFakeMailer()
	consumer := notify.NewConsumer(pubsub, notify.New(mailer, mailConf))

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	// 等待订阅建立，gochannel 不会为迟到的订阅者保留消息
	require.Eventually(t, func() bool {
		suppressed := queue.LockOverriddenPayload{PreviousHolder: "dave", NewHolder: "carol", Notify: false}
		if err := queue.PublishLockOverridden(pubsub, suppressed); err != nil {
			return false
		}

		wanted := queue.LockOverriddenPayload{
			Document:       queue.DocumentRef{ID: 1, Slug: "handbook"},
			PreviousHolder: "alice",
			NewHolder:      "carol",
			Notify:         true,
		}
		if err := queue.PublishLockOverridden(pubsub, wanted); err != nil {
			return false
		}

		select {
		case s := <-mailer.ch:
			return s.to == "alice@example.com"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()

	for _, s := range mailer.sent {
		assert.NotEqual(t, "dave@example.com", s.to)
	}
}
