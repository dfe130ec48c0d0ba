// Package mail はアクションリンク付きメールの送信を提供します。
package mail

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v3"
)

// Sender は単一メールの送信契約です。
// to は宛先アドレス、url は本文に埋め込むアクションリンクです。
type Sender interface {
	Send(ctx context.Context, to, url string) error
}

// ResendSender は Resend API によるメール送信実装です。
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender は ResendSender を作成します。
// apiKey は Resend のAPIキー、from は検証済みドメインの送信元アドレスです。
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send はアクションリンクを含むメールを送信します。
func (s *ResendSender) Send(ctx context.Context, to, url string) error {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family:Arial,Helvetica,sans-serif;">
  <p>Click the link below to continue:</p>
  <p><a href="%s">%s</a></p>
  <p style="color:#64748b;font-size:13px;">If you didn't request this email, you can safely ignore it.</p>
</body>
</html>`, url, url)

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: "Confirm your action",
		Html:    html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// LogSender はメールを送信せずログへ出力する Sender 実装です。
// ローカル開発でAPIキーが未設定の場合に使用します。
type LogSender struct {
	logger *log.Logger
}

// NewLogSender は LogSender を作成します。
func NewLogSender(logger *log.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send はメールの内容をログに出力します。
func (s *LogSender) Send(ctx context.Context, to, url string) error {
	s.logger.Printf("mail to=%s url=%s", to, url)
	return nil
}
