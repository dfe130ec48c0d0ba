package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver — CGOなしで動作します
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT    NOT NULL,
    email      TEXT    NOT NULL UNIQUE,
    password   TEXT    NOT NULL,
    confirmed  INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteRepository は Repository のSQLite実装です。
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite はSQLiteデータベースを開き、スキーマを適用した Repository を返します。
func OpenSQLite(dbPath string) (*SQLiteRepository, error) {
	// データベースファイルの親ディレクトリを作成（存在しない場合）
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close はデータベース接続を閉じます。
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Create はユーザーを作成し、生成されたIDと作成日時を書き戻します。
func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (name, email, password, confirmed)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		u.Name,
		u.Email,
		u.Password,
		u.Confirmed,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByEmail はメールアドレスでユーザーを検索します。見つからない場合は (nil, nil) を返します。
func (r *SQLiteRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `
		SELECT id, name, email, password, confirmed, created_at, updated_at
		FROM users WHERE email = ?`, email)
}

// FindByID はIDでユーザーを検索します。見つからない場合は (nil, nil) を返します。
func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, `
		SELECT id, name, email, password, confirmed, created_at, updated_at
		FROM users WHERE id = ?`, id)
}

// FindAll は全ユーザーをID順で返します。
func (r *SQLiteRepository) FindAll(ctx context.Context) ([]User, error) {
	query := `
		SELECT id, name, email, password, confirmed, created_at, updated_at
		FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Password, &u.Confirmed, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// SetConfirmed はユーザーを確認済みにします。
func (r *SQLiteRepository) SetConfirmed(ctx context.Context, id int64) error {
	return r.update(ctx, `
		UPDATE users SET confirmed = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
}

// SetPassword はハッシュ化済みパスワードを更新します。
func (r *SQLiteRepository) SetPassword(ctx context.Context, id int64, hashed string) error {
	return r.update(ctx, `
		UPDATE users SET password = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, hashed, id)
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	u := &User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.Confirmed, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
