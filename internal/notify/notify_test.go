package notify

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func stubSendMail(t *testing.T, err error) *[]sentMail {
	t.Helper()

	var sent []sentMail
	original := sendMail
	sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return err
	}
	t.Cleanup(func() { sendMail = original })

	return &sent
}

func TestInvite(t *testing.T) {
	sent := stubSendMail(t, nil)

	m := New(&Config{
		Host: "smtp.example.com",
		Port: 587,
		From: "hr@example.com",
	}, zap.NewNop())

	m.Invite("ann@example.com", "Ann", "Backend Engineer")

	require.Len(t, *sent, 1)
	mail := (*sent)[0]

	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, "hr@example.com", mail.from)
	assert.Equal(t, []string{"ann@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Interview Invitation for Backend Engineer")
	assert.Contains(t, mail.msg, "Dear Ann,")
	assert.Contains(t, mail.msg, "position\nof Backend Engineer")
}

func TestCustom(t *testing.T) {
	sent := stubSendMail(t, nil)

	m := New(&Config{Host: "smtp.example.com", Port: 25, From: "hr@example.com"}, zap.NewNop())
	m.Custom("bob@example.com", "Bob", "Next steps", "Please bring your portfolio.")

	require.Len(t, *sent, 1)
	mail := (*sent)[0]

	assert.Contains(t, mail.msg, "Subject: Next steps")
	assert.Contains(t, mail.msg, "Dear Bob,")
	assert.Contains(t, mail.msg, "Please bring your portfolio.")
}

func TestSendFailureDoesNotPropagate(t *testing.T) {
	stubSendMail(t, errors.New("connection refused"))

	m := New(&Config{Host: "smtp.example.com", Port: 587, From: "hr@example.com"}, zap.NewNop())

	// Must not panic or surface the error.
	m.Invite("ann@example.com", "Ann", "Engineer")
}

func TestUnconfiguredMailerSkipsDelivery(t *testing.T) {
	sent := stubSendMail(t, nil)

	m := New(nil, zap.NewNop())
	assert.False(t, m.Enabled())

	m.Invite("ann@example.com", "Ann", "Engineer")
	assert.Empty(t, *sent)
}
