package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/auth-forge/internal/mail"
	"github.com/yourusername/auth-forge/internal/password"
	"github.com/yourusername/auth-forge/internal/token"
	"github.com/yourusername/auth-forge/internal/user"
)

// Service は認証フローのオーケストレーターです。
//
// 各メソッドは (fieldErrs, err) を返します:
//   - fieldErrs != nil → 利用者が修正できる検証エラー（ストアには到達していない）
//   - err != nil       → ストア・メール等のインフラ障害
//
// 検証エラーは常に状態チェックより先に評価されます。
type Service struct {
	users  user.Repository
	tokens *token.Issuer
	hasher password.Hasher
	mailer mail.Dispatcher
}

// NewService は Service を作成します。
func NewService(users user.Repository, tokens *token.Issuer, hasher password.Hasher, mailer mail.Dispatcher) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
	}
}

// Register は新規ユーザーを未確認状態で作成し、確認メールを送ります。
func (s *Service) Register(ctx context.Context, name, email, plaintext string) ([]FieldError, error) {
	if errs := validateRegister(name, email, plaintext); errs != nil {
		return errs, nil
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return []FieldError{{Field: "email", Message: "Email already in use"}}, nil
	}

	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		Name:     name,
		Email:    email,
		Password: hashed,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	url, err := s.tokens.IssueConfirmation(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Dispatch(ctx, email, url); err != nil {
		return nil, err
	}

	return nil, nil
}

// Login は資格情報を検証し、認証されたユーザーを返します。
// エラーの評価順序: 入力形式 → ユーザー存在 → パスワード → 確認済みフラグ。
func (s *Service) Login(ctx context.Context, email, plaintext string) (*user.User, []FieldError, error) {
	if errs := validateLogin(email, plaintext); errs != nil {
		return nil, errs, nil
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		return nil, []FieldError{{Field: "email", Message: "User not found"}}, nil
	}

	ok, err := s.hasher.Verify(plaintext, u.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, []FieldError{{Field: "password", Message: "Incorrect password"}}, nil
	}

	if !u.Confirmed {
		return nil, []FieldError{{Field: "email", Message: "Please confirm your email"}}, nil
	}

	return u, nil, nil
}

// ConfirmEmail は確認トークンを引き換え、該当ユーザーを確認済みにします。
func (s *Service) ConfirmEmail(ctx context.Context, tok string) ([]FieldError, error) {
	userID, err := s.tokens.Redeem(ctx, token.ConfirmPrefix, tok)
	if err != nil {
		if errors.Is(err, token.ErrInvalid) {
			return []FieldError{{Field: "token", Message: "Something went wrong"}}, nil
		}
		return nil, err
	}

	if err := s.users.SetConfirmed(ctx, userID); err != nil {
		return nil, err
	}

	return nil, nil
}

// ForgotPassword は再設定トークンを発行しメールで送ります。
// メールアドレスが未登録でも成功として扱い、アカウントの存在を漏らしません。
func (s *Service) ForgotPassword(ctx context.Context, email string) ([]FieldError, error) {
	if errs := validateForgotPassword(email); errs != nil {
		return errs, nil
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}

	url, err := s.tokens.IssueReset(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Dispatch(ctx, email, url); err != nil {
		return nil, err
	}

	return nil, nil
}

// ChangePassword は再設定トークンを引き換え、新しいパスワードを保存します。
func (s *Service) ChangePassword(ctx context.Context, tok, plaintext string) ([]FieldError, error) {
	if errs := validateChangePassword(plaintext); errs != nil {
		return errs, nil
	}

	userID, err := s.tokens.Redeem(ctx, token.ForgotPasswordPrefix, tok)
	if err != nil {
		if errors.Is(err, token.ErrInvalid) {
			return []FieldError{{Field: "token", Message: "Something went wrong"}}, nil
		}
		return nil, err
	}

	hashed, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.SetPassword(ctx, userID, hashed); err != nil {
		return nil, err
	}

	return nil, nil
}

// CurrentUser はセッション中のユーザーIDからユーザーを取得します。
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*user.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ListUsers は全ユーザーを返します。
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.users.FindAll(ctx)
}
