package notify

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, m.render(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogMailer only logs messages. Used when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("mail to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Body)
	return nil
}

const timeLayout = "Monday, 02 Jan 2006 15:04 MST"

// ConfirmationMessage builds the mail sent to the booking user.
func ConfirmationMessage(toEmail, userName, staffName string, ev BookingEvent) Message {
	greeting := "Hello,"
	if userName != "" {
		greeting = fmt.Sprintf("Hello %s,", userName)
	}
	with := ""
	if staffName != "" {
		with = " with " + staffName
	}

	var b strings.Builder
	b.WriteString(greeting + "\n\n")
	fmt.Fprintf(&b, "Your appointment%s has been successfully scheduled.\n\n", with)
	fmt.Fprintf(&b, "Start: %s\n", ev.StartTime.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "End:   %s\n\n", ev.EndTime.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "Reference: %s\n\n", ev.AppointmentID)
	b.WriteString("If you need to reschedule or cancel, please visit your dashboard.\n")

	return Message{
		To:      toEmail,
		Subject: "Appointment Confirmation",
		Body:    b.String(),
	}
}

// sendTimeout bounds one delivery attempt.
const sendTimeout = 15 * time.Second
