package mail

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/hitoshi/portfolio/internal/model"
)

// sentMail は送信関数に渡された内容を記録する。
type sentMail struct {
	msg *gomail.Msg
}

func newTestMailer(cfg Config) (*Mailer, *[]sentMail) {
	var sent []sentMail
	m := NewMailer(cfg)
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	m.send = func(_ context.Context, msg *gomail.Msg) error {
		sent = append(sent, sentMail{msg: msg})
		return nil
	}
	return m, &sent
}

func bodyOf(t *testing.T, msg *gomail.Msg) string {
	t.Helper()
	parts := msg.GetParts()
	if len(parts) != 1 {
		t.Fatalf("expected 1 body part, got %d", len(parts))
	}
	if ct := parts[0].GetContentType(); ct != gomail.TypeTextPlain {
		t.Errorf("content type = %q, want %q", ct, gomail.TypeTextPlain)
	}
	content, err := parts[0].GetContent()
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(content)
}

func configuredConfig() Config {
	return Config{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "owner@example.com",
		Password: "app-password",
	}
}

func validContact() *ContactMessage {
	return &ContactMessage{
		Name:    "Taro Yamada",
		Email:   "taro@example.com",
		Message: "Hello!\nI liked your project.",
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

func TestMailer_ImplementsInterface(t *testing.T) {
	var _ MailerService = (*Mailer)(nil)
}

func TestMailer_Configured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"all set", configuredConfig(), true},
		{"no host", Config{Port: 587, Username: "a@example.com"}, false},
		{"no port", Config{Host: "smtp.example.com", Username: "a@example.com"}, false},
		{"no user", Config{Host: "smtp.example.com", Port: 587}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewMailer(tt.cfg).Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMailer_SendContact_NotConfigured(t *testing.T) {
	m, sent := newTestMailer(Config{})

	err := m.SendContact(context.Background(), validContact())
	assertAPIErrorCode(t, err, model.ErrCodeMailNotConfigured)
	if len(*sent) != 0 {
		t.Errorf("expected no mail sent, got %d", len(*sent))
	}
}

func TestMailer_SendContact_SendsToOwner(t *testing.T) {
	m, sent := newTestMailer(configuredConfig())

	if err := m.SendContact(context.Background(), validContact()); err != nil {
		t.Fatalf("SendContact returned error: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(*sent))
	}

	got := (*sent)[0].msg
	if from := got.GetFrom(); len(from) != 1 || from[0].Address != "owner@example.com" {
		t.Errorf("from = %v", from)
	}
	if to := got.GetTo(); len(to) != 1 || to[0].Address != "owner@example.com" {
		t.Errorf("to = %v, want [owner@example.com]", to)
	}
	replyTo := got.GetAddrHeader(gomail.HeaderReplyTo)
	if len(replyTo) != 1 || replyTo[0].Name != "Taro Yamada" || replyTo[0].Address != "taro@example.com" {
		t.Errorf("reply-to = %v", replyTo)
	}
	if subj := got.GetGenHeader(gomail.HeaderSubject); len(subj) != 1 || subj[0] != "[Portfolio] お問い合わせ: Taro Yamada" {
		t.Errorf("subject = %v", subj)
	}
	if date := got.GetGenHeader(gomail.HeaderDate); len(date) != 1 || date[0] != "Fri, 02 Jan 2026 03:04:05 +0000" {
		t.Errorf("date = %v", date)
	}

	body := bodyOf(t, got)
	for _, want := range []string{
		"Name: Taro Yamada\n",
		"Email: taro@example.com\n",
		"Hello!\nI liked your project.\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\n%s", want, body)
		}
	}
}

func TestMailer_ClientOptions(t *testing.T) {
	m := NewMailer(configuredConfig())

	client, err := gomail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if got := client.TLSPolicy(); got != gomail.TLSMandatory.String() {
		t.Errorf("TLSPolicy = %q, want %q", got, gomail.TLSMandatory.String())
	}
	if got := client.ServerAddr(); got != "smtp.example.com:587" {
		t.Errorf("ServerAddr = %q, want smtp.example.com:587", got)
	}
}

func TestMailer_ClientOptions_NoPasswordSkipsAuth(t *testing.T) {
	withPassword := NewMailer(configuredConfig()).clientOptions()

	cfg := configuredConfig()
	cfg.Password = ""
	withoutPassword := NewMailer(cfg).clientOptions()

	if len(withoutPassword) >= len(withPassword) {
		t.Errorf("expected auth options to be omitted without password: %d vs %d", len(withoutPassword), len(withPassword))
	}
}

// TestMailer_SendContact_UnresponsiveServer は挨拶を返さないSMTPサーバーでもコンテキストの期限で戻ることを検証する。
func TestMailer_SendContact_UnresponsiveServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	cfg := configuredConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = addr.Port
	m := NewMailer(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.SendContact(ctx, validContact()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from unresponsive server")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("SendContact did not return after the context deadline")
	}
}

func TestMailer_SendContact_ValidationFailure(t *testing.T) {
	m, sent := newTestMailer(configuredConfig())
	msg := validContact()
	msg.Email = "not-an-address"

	err := m.SendContact(context.Background(), msg)
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
	if len(*sent) != 0 {
		t.Errorf("expected no mail sent, got %d", len(*sent))
	}
}

func TestMailer_SendContact_SendErrorIsWrapped(t *testing.T) {
	m, _ := newTestMailer(configuredConfig())
	sendErr := errors.New("connection reset")
	m.send = func(context.Context, *gomail.Msg) error { return sendErr }

	err := m.SendContact(context.Background(), validContact())
	if !errors.Is(err, sendErr) {
		t.Errorf("expected wrapped send error, got %v", err)
	}
}

func TestMailer_SendContact_CanceledContext(t *testing.T) {
	m, sent := newTestMailer(configuredConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.SendContact(ctx, validContact()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(*sent) != 0 {
		t.Errorf("expected no mail sent, got %d", len(*sent))
	}
}

func TestContactMessage_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *ContactMessage)
		field  string
	}{
		{"valid", func(m *ContactMessage) {}, ""},
		{"empty name", func(m *ContactMessage) { m.Name = "" }, "name"},
		{"long name", func(m *ContactMessage) { m.Name = strings.Repeat("あ", 101) }, "name"},
		{"header injection", func(m *ContactMessage) { m.Name = "a\r\nBcc: x@example.com" }, "name"},
		{"empty email", func(m *ContactMessage) { m.Email = "" }, "email"},
		{"display name in email", func(m *ContactMessage) { m.Email = "Taro <taro@example.com>" }, "email"},
		{"empty message", func(m *ContactMessage) { m.Message = "" }, "message"},
		{"long message", func(m *ContactMessage) { m.Message = strings.Repeat("x", 5001) }, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validContact()
			tt.modify(msg)

			err := msg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if !strings.HasPrefix(apiErr.Message, tt.field+":") {
				t.Errorf("message = %q, want prefix %q", apiErr.Message, tt.field+":")
			}
		})
	}
}
