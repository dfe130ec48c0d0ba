// Package user はユーザーレコードの管理を提供します。
package user

import (
	"context"
	"time"
)

// User はユーザーの永続化レコードです。
// Password にはハッシュ化済みの値のみを保持し、JSONには決して含めません。
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository はユーザーストアの契約です。
// FindByEmail / FindByID は該当レコードがない場合 (nil, nil) を返します。
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindAll(ctx context.Context) ([]User, error)
	SetConfirmed(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, hashed string) error
}
