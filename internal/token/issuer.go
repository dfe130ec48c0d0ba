package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// ConfirmPrefix はメールアドレス確認トークンのキー名前空間です。
	ConfirmPrefix = "confirm-"
	// ForgotPasswordPrefix はパスワード再設定トークンのキー名前空間です。
	ForgotPasswordPrefix = "forgot-password-"

	confirmTTL        = 3 * 24 * time.Hour
	forgotPasswordTTL = 3 * time.Hour
)

// ErrInvalid は未発行・期限切れ・引き換え済みのトークンを示します。
var ErrInvalid = errors.New("invalid token")

// Issuer はワンタイムトークンを発行し、フロントエンド用URLを組み立てます。
// トークンはUUID v4の推測不能な識別子で、ストアに userId を値として保存されます。
type Issuer struct {
	store   Store
	baseURL string
}

// NewIssuer は Issuer を作成します。
// baseURL は確認・再設定リンクのベースURL（末尾スラッシュなし）です。
func NewIssuer(store Store, baseURL string) *Issuer {
	return &Issuer{
		store:   store,
		baseURL: baseURL,
	}
}

// IssueConfirmation はメールアドレス確認トークンを発行し、確認URLを返します。
// TTLは3日です。
func (i *Issuer) IssueConfirmation(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := i.store.Set(ctx, ConfirmPrefix+token, strconv.FormatInt(userID, 10), confirmTTL); err != nil {
		return "", fmt.Errorf("failed to store confirmation token: %w", err)
	}
	return fmt.Sprintf("%s/confirm/%s", i.baseURL, token), nil
}

// IssueReset はパスワード再設定トークンを発行し、再設定URLを返します。
// TTLは3時間です。
func (i *Issuer) IssueReset(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := i.store.Set(ctx, ForgotPasswordPrefix+token, strconv.FormatInt(userID, 10), forgotPasswordTTL); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}
	return fmt.Sprintf("%s/change-password/%s", i.baseURL, token), nil
}

// Redeem はトークンを引き換えて userId を返します。
// トークンはワンタイムです: 読み取りに成功した場合のみキーを削除します。
// 未発行・期限切れ・引き換え済み・値が正の整数でない場合は ErrInvalid を返し、
// その際ストアには一切書き込みません。
func (i *Issuer) Redeem(ctx context.Context, prefix, token string) (int64, error) {
	key := prefix + token

	value, err := i.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read token: %w", err)
	}
	if value == "" {
		return 0, ErrInvalid
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalid
	}

	if err := i.store.Del(ctx, key); err != nil {
		return 0, fmt.Errorf("failed to delete token: %w", err)
	}

	return userID, nil
}
