// Package mail はお問い合わせフォームのメール送信を提供する。
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"

	gomail "github.com/wneessen/go-mail"

	"github.com/hitoshi/portfolio/internal/model"
)

// お問い合わせ内容の制約。
const (
	contactNameMaxLength    = 100
	contactMessageMaxLength = 5000
	contactSubjectPrefix    = "[Portfolio] お問い合わせ: "
)

// SMTPサーバーとのやり取り全体の上限時間。
const defaultSMTPTimeout = 15 * time.Second

// Config はSMTP接続設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// ContactMessage は訪問者からのお問い合わせ内容。
type ContactMessage struct {
	Name    string
	Email   string
	Message string
}

// Normalize は入力値の前後の空白を除去する。
func (m *ContactMessage) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Message = strings.TrimSpace(m.Message)
}

// Validate はお問い合わせ内容を検証する。
func (m *ContactMessage) Validate() error {
	if m.Name == "" {
		return model.NewValidationError("name", "this field is required")
	}
	if utf8.RuneCountInString(m.Name) > contactNameMaxLength {
		return model.NewValidationError("name", "must be at most 100 characters")
	}
	if strings.ContainsAny(m.Name, "\r\n") {
		return model.NewValidationError("name", "must not contain line breaks")
	}
	if m.Email == "" {
		return model.NewValidationError("email", "this field is required")
	}
	addr, err := netmail.ParseAddress(m.Email)
	if err != nil || addr.Address != m.Email {
		return model.NewValidationError("email", "enter a valid email address")
	}
	if m.Message == "" {
		return model.NewValidationError("message", "this field is required")
	}
	if utf8.RuneCountInString(m.Message) > contactMessageMaxLength {
		return model.NewValidationError("message", "must be at most 5000 characters")
	}
	return nil
}

// MailerService はメール送信のインターフェース。
type MailerService interface {
	// Configured はメール送信が設定済みかを返す。
	Configured() bool
	// SendContact はお問い合わせ内容をサイト所有者に送信する。
	SendContact(ctx context.Context, msg *ContactMessage) error
}

// sendFunc は組み立て済みメッセージを送信する関数。
type sendFunc func(ctx context.Context, msg *gomail.Msg) error

// Mailer はSMTPでメールを送信する。
// 宛先と送信元はどちらもEMAIL_HOST_USERを使用する。
type Mailer struct {
	cfg     Config
	timeout time.Duration
	send    sendFunc
	now     func() time.Time
}

// NewMailer はMailerを生成する。
func NewMailer(cfg Config) *Mailer {
	m := &Mailer{
		cfg:     cfg,
		timeout: defaultSMTPTimeout,
		now:     time.Now,
	}
	m.send = m.dialAndSend
	return m
}

// Configured はメール送信が設定済みかを返す。
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.Port > 0 && m.cfg.Username != ""
}

// SendContact はお問い合わせ内容をEMAIL_HOST_USER宛てに送信する。
// 返信先（Reply-To）には訪問者のメールアドレスを設定する。
func (m *Mailer) SendContact(ctx context.Context, msg *ContactMessage) error {
	if !m.Configured() {
		return model.NewMailNotConfiguredError()
	}
	msg.Normalize()
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := m.buildContactMessage(msg)
	if err != nil {
		return fmt.Errorf("お問い合わせメールの組み立てに失敗しました: %w", err)
	}
	if err := m.send(ctx, out); err != nil {
		return fmt.Errorf("お問い合わせメールの送信に失敗しました: %w", err)
	}

	slog.Info("お問い合わせメールを送信しました", "reply_to", msg.Email)
	return nil
}

// buildContactMessage はお問い合わせ内容からメールを組み立てる。
func (m *Mailer) buildContactMessage(msg *ContactMessage) (*gomail.Msg, error) {
	out := gomail.NewMsg(gomail.WithNoDefaultUserAgent())
	if err := out.From(m.cfg.Username); err != nil {
		return nil, err
	}
	if err := out.To(m.cfg.Username); err != nil {
		return nil, err
	}
	replyTo := (&netmail.Address{Name: msg.Name, Address: msg.Email}).String()
	if err := out.ReplyTo(replyTo); err != nil {
		return nil, err
	}
	out.Subject(contactSubjectPrefix + msg.Name)
	out.SetDateWithValue(m.now())

	var body strings.Builder
	fmt.Fprintf(&body, "Name: %s\n", msg.Name)
	fmt.Fprintf(&body, "Email: %s\n", msg.Email)
	body.WriteString("\n")
	body.WriteString(strings.ReplaceAll(msg.Message, "\r\n", "\n"))
	body.WriteString("\n")
	out.SetBodyString(gomail.TypeTextPlain, body.String())
	return out, nil
}

// clientOptions はSMTPクライアントの接続設定を返す。
// STARTTLSは必須とし、非対応のサーバーには平文で送信しない。
func (m *Mailer) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(m.timeout),
		gomail.WithDialContextFunc(dialWithDeadline),
	}
	if m.cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

// dialAndSend はSMTPサーバーに接続してメッセージを送信する。
func (m *Mailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// dialWithDeadline はコンテキストの期限を接続のデッドラインに設定する。
// 挨拶を返さないサーバーでもリクエストの期限内に読み込みが打ち切られる。
func dialWithDeadline(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// compile-time interface check
var _ MailerService = (*Mailer)(nil)
