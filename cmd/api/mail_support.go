package main

import (
	"log"

	"github.com/yourusername/auth-forge/internal/config"
	"github.com/yourusername/auth-forge/internal/mail"
)

// setupMail はメール送信キューを初期化します。
// Resend APIキーが未設定の場合はメール内容をログに出力するだけの
// Sender を使用します（ローカル開発用）。
func setupMail(cfg *config.Config) (*mail.Queue, error) {
	var sender mail.Sender
	if cfg.ResendAPIKey != "" {
		sender = mail.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		log.Println("RESEND_API_KEY is not set, outgoing mail will be logged only")
		sender = mail.NewLogSender(log.Default())
	}

	return mail.NewQueue(cfg.RedisURL, sender, log.Default())
}
