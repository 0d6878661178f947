package mailer

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Senderは確認コードの送信。ベストエフォート（失敗はfalseで返す）。
type Sender interface {
	SendCode(email string, code string) bool
}

// SMTPSenderは実際にメールを送る実装。
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger
}

// DI
func NewSMTPSender(host string, port int, username string, password string, from string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

func (s *SMTPSender) SendCode(email string, code string) bool {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	msg := buildMessage(s.from, email, code)

	if err := smtp.SendMail(addr, auth, s.from, []string{email}, msg); err != nil {
		s.logger.Error("verification mail send failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func buildMessage(from string, to string, code string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: =?UTF-8?B?44Oh44O844Or44Ki44OJ44Os44K544Gu56K66KqN?=\r\n") // メールアドレスの確認
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("確認コード: " + code + "\r\n")
	b.WriteString("心当たりがない場合はこのメールを無視してください。\r\n")
	return []byte(b.String())
}

// LogSenderは開発用。コードをログに出すだけで常に成功扱い。
type LogSender struct {
	logger *slog.Logger
}

// DI
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendCode(email string, code string) bool {
	s.logger.Info("verification code issued",
		slog.String("email", email),
		slog.String("code", code),
	)
	return true
}
