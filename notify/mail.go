package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"pflanzen/logging"
	"pflanzen/messaging"
)

// MailConfig SMTP 配置
type MailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	ProvidedBy string `yaml:"provided_by"`
}

// DefaultMailConfig 本地开发邮件服务器
func DefaultMailConfig() MailConfig {
	return MailConfig{
		Host:       "localhost",
		Port:       25,
		From:       `"Joe Doe" <Joe.Doe@acme.com>`,
		To:         `"Foo Bar" <Foo.Bar@acme.com>`,
		ProvidedBy: "Software Engineering",
	}
}

// SendFunc 与 smtp.SendMail 同签名
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer 订阅创建事件并发送通知邮件
type Mailer struct {
	config MailConfig
	send   SendFunc
	logger logging.Logger
}

// NewMailer 创建邮件发送器；send 为 nil 时使用 smtp.SendMail
func NewMailer(config MailConfig, send SendFunc) *Mailer {
	if send == nil {
		send = smtp.SendMail
	}
	return &Mailer{
		config: config,
		send:   send,
		logger: logging.GetLogger().WithFields(logging.String("component", "notify.mail")),
	}
}

// Subscribe 在总线上注册邮件处理器；未启用时不注册
func (m *Mailer) Subscribe(bus messaging.IMessageBus) error {
	if !m.config.Enabled {
		m.logger.Info(context.Background(), "mail disabled")
		return nil
	}
	return bus.Subscribe(TypeCreated, messaging.NewHandler("notify.mail", m.handle))
}

func (m *Mailer) handle(ctx context.Context, msg messaging.IMessage) error {
	var ev Created
	if err := messaging.DecodePayload(msg, &ev); err != nil {
		return fmt.Errorf("decode %s: %w", msg.GetType(), err)
	}
	return m.Send(ctx, ev)
}

// Send 发送“新建”邮件
func (m *Mailer) Send(ctx context.Context, ev Created) error {
	from, err := mailAddress(m.config.From)
	if err != nil {
		return err
	}
	to, err := mailAddress(m.config.To)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	body := m.compose(ev)
	m.logger.Debug(ctx, "send mail", logging.String("addr", addr), logging.String("id", ev.ID))
	if err := m.send(addr, nil, from, []string{to}, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (m *Mailer) compose(ev Created) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", m.config.From)
	header("To", m.config.To)
	header("Subject", mime.QEncoding.Encode("utf-8", "Neue Pflanze "+ev.ID))
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	if m.config.ProvidedBy != "" {
		header("X-ProvidedBy", m.config.ProvidedBy)
	}
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Die Pflanze mit dem Namen <strong>%s</strong> ist angelegt\r\n", html.EscapeString(ev.Name))
	return b.Bytes()
}
