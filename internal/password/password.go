// Package password はパスワードの一方向ハッシュ化と検証を提供します。
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2idパラメータ（OWASP推奨値）
const (
	argonTime    = 1         // 反復回数
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4         // 並列度
	argonSaltLen = 16        // ソルト長（バイト）
	argonKeyLen  = 32        // 出力長（バイト）
)

// Hasher はパスワードハッシュ化の契約です。
// 平文パスワードはこのパッケージの外へ保存・出力されません。
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

// Argon2idHasher は argon2id による Hasher 実装です。
type Argon2idHasher struct{}

// NewArgon2idHasher は Argon2idHasher を作成します。
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash はパスワードをargon2idでハッシュ化し、PHC形式の文字列を返します。
// 形式: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("password cannot be empty")
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify はパスワードとPHC形式のハッシュ文字列を照合します。
// 一致なら (true, nil)、不一致なら (false, nil)、ハッシュが壊れている場合はエラーを返します。
func (h *Argon2idHasher) Verify(plaintext, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, errors.New("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid hash version: %w", err)
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("invalid hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("invalid hash salt: %w", err)
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("invalid hash payload: %w", err)
	}
	if len(expected) == 0 {
		return false, errors.New("invalid hash payload length")
	}

	// 保存時と同じパラメータで再計算し、定数時間で比較する
	computed := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
