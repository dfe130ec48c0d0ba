package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/auth-forge/internal/token"
	"github.com/yourusername/auth-forge/internal/user"
)

// ─── テスト用スタブ ───

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (s *memoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memoryKV) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *memoryKV) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

type memoryRepo struct {
	nextID int64
	users  map[int64]*user.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]*user.User)}
}

func (r *memoryRepo) Create(ctx context.Context, u *user.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("duplicate email")
		}
	}
	r.nextID++
	u.ID = r.nextID
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id int64) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (r *memoryRepo) FindAll(ctx context.Context) ([]user.User, error) {
	var users []user.User
	for id := int64(1); id <= r.nextID; id++ {
		if u, ok := r.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *memoryRepo) SetConfirmed(ctx context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Confirmed = true
	return nil
}

func (r *memoryRepo) SetPassword(ctx context.Context, id int64, hashed string) error {
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Password = hashed
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (fakeHasher) Verify(plaintext, encoded string) (bool, error) {
	return encoded == "hashed:"+plaintext, nil
}

type stubDispatcher struct {
	count int
	to    string
	url   string
	err   error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, to, url string) error {
	if d.err != nil {
		return d.err
	}
	d.count++
	d.to = to
	d.url = url
	return nil
}

func newTestService() (*Service, *memoryRepo, *memoryKV, *stubDispatcher) {
	repo := newMemoryRepo()
	kv := newMemoryKV()
	dispatcher := &stubDispatcher{}
	service := NewService(repo, token.NewIssuer(kv, "http://localhost:3000"), fakeHasher{}, dispatcher)
	return service, repo, kv, dispatcher
}

func dispatchedToken(t *testing.T, url string) string {
	t.Helper()
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		t.Fatalf("unexpected url: %s", url)
	}
	return url[idx+1:]
}

// ─── テスト ───

func TestRegisterCreatesUnconfirmedUser(t *testing.T) {
	service, repo, _, dispatcher := newTestService()
	ctx := context.Background()

	errs, err := service.Register(ctx, "Al", "al@x.com", "secret1")
	if err != nil || errs != nil {
		t.Fatalf("Register = (%v, %v)", errs, err)
	}

	u, _ := repo.FindByEmail(ctx, "al@x.com")
	if u == nil {
		t.Fatal("user was not created")
	}
	if u.Confirmed {
		t.Fatal("new user must not be confirmed")
	}
	if u.Password != "hashed:secret1" {
		t.Fatalf("password = %q, plaintext must never be stored", u.Password)
	}

	if dispatcher.count != 1 || dispatcher.to != "al@x.com" {
		t.Fatalf("confirmation mail not dispatched: %#v", dispatcher)
	}
	if !strings.Contains(dispatcher.url, "/confirm/") {
		t.Fatalf("unexpected confirm url: %s", dispatcher.url)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _, _, _ := newTestService()
	ctx := context.Background()

	if errs, err := service.Register(ctx, "Al", "al@x.com", "secret1"); err != nil || errs != nil {
		t.Fatalf("first Register = (%v, %v)", errs, err)
	}

	errs, err := service.Register(ctx, "Bo", "al@x.com", "secret2")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !hasFieldError(errs, "email") {
		t.Fatalf("expected email error, got %#v", errs)
	}
}

func TestRegisterValidationShortCircuits(t *testing.T) {
	service, repo, _, dispatcher := newTestService()

	errs, err := service.Register(context.Background(), "", "bad-email", "123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 field errors, got %#v", errs)
	}
	if len(repo.users) != 0 {
		t.Fatal("validation failure must not create a user")
	}
	if dispatcher.count != 0 {
		t.Fatal("validation failure must not dispatch mail")
	}
}

func TestLoginErrorOrder(t *testing.T) {
	service, repo, _, _ := newTestService()
	ctx := context.Background()

	if errs, err := service.Register(ctx, "Al", "al@x.com", "secret1"); err != nil || errs != nil {
		t.Fatalf("Register = (%v, %v)", errs, err)
	}

	// 未登録のメールアドレス → email フィールドのエラー
	_, errs, err := service.Login(ctx, "other@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "email" || errs[0].Message != "User not found" {
		t.Fatalf("unexpected errors: %#v", errs)
	}

	// パスワード不一致 → password フィールドのエラー（メールの存在は漏らさない）
	_, errs, err = service.Login(ctx, "al@x.com", "wrong-password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "password" || errs[0].Message != "Incorrect password" {
		t.Fatalf("unexpected errors: %#v", errs)
	}

	// 未確認 → email フィールドのエラー、セッションは確立されない
	u, errs, err := service.Login(ctx, "al@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if u != nil {
		t.Fatal("unconfirmed login must not return a user")
	}
	if len(errs) != 1 || errs[0].Message != "Please confirm your email" {
		t.Fatalf("unexpected errors: %#v", errs)
	}

	// 確認後はログイン成功
	stored, _ := repo.FindByEmail(ctx, "al@x.com")
	if err := repo.SetConfirmed(ctx, stored.ID); err != nil {
		t.Fatalf("SetConfirmed returned error: %v", err)
	}

	u, errs, err = service.Login(ctx, "al@x.com", "secret1")
	if err != nil || errs != nil {
		t.Fatalf("Login = (%v, %v)", errs, err)
	}
	if u == nil || u.Email != "al@x.com" {
		t.Fatalf("unexpected user: %#v", u)
	}
}

func TestConfirmEmailRoundTrip(t *testing.T) {
	service, repo, _, dispatcher := newTestService()
	ctx := context.Background()

	if errs, err := service.Register(ctx, "Al", "al@x.com", "secret1"); err != nil || errs != nil {
		t.Fatalf("Register = (%v, %v)", errs, err)
	}
	tok := dispatchedToken(t, dispatcher.url)

	errs, err := service.ConfirmEmail(ctx, tok)
	if err != nil || errs != nil {
		t.Fatalf("ConfirmEmail = (%v, %v)", errs, err)
	}

	u, _ := repo.FindByEmail(ctx, "al@x.com")
	if !u.Confirmed {
		t.Fatal("user must be confirmed")
	}

	// 引き換え済みトークンの再利用は拒否される
	errs, err = service.ConfirmEmail(ctx, tok)
	if err != nil {
		t.Fatalf("ConfirmEmail returned error: %v", err)
	}
	if !hasFieldError(errs, "token") {
		t.Fatalf("expected token error, got %#v", errs)
	}
}

func TestConfirmEmailUnknownToken(t *testing.T) {
	service, _, _, _ := newTestService()

	errs, err := service.ConfirmEmail(context.Background(), "b51afd2c-713e-4e6f-912c-74f4aa88c3e9")
	if err != nil {
		t.Fatalf("ConfirmEmail returned error: %v", err)
	}
	if !hasFieldError(errs, "token") {
		t.Fatalf("expected token error, got %#v", errs)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	service, _, kv, dispatcher := newTestService()

	errs, err := service.ForgotPassword(context.Background(), "nobody@x.com")
	if err != nil || errs != nil {
		t.Fatalf("ForgotPassword = (%v, %v)", errs, err)
	}
	// アカウントの存在を漏らさない: トークンもメールも発行されない
	if dispatcher.count != 0 {
		t.Fatal("mail must not be dispatched for unknown email")
	}
	if len(kv.values) != 0 {
		t.Fatal("no token must be issued for unknown email")
	}
}

func TestChangePasswordRoundTrip(t *testing.T) {
	service, repo, _, dispatcher := newTestService()
	ctx := context.Background()

	if errs, err := service.Register(ctx, "Al", "al@x.com", "secret1"); err != nil || errs != nil {
		t.Fatalf("Register = (%v, %v)", errs, err)
	}

	if errs, err := service.ForgotPassword(ctx, "al@x.com"); err != nil || errs != nil {
		t.Fatalf("ForgotPassword = (%v, %v)", errs, err)
	}
	if !strings.Contains(dispatcher.url, "/change-password/") {
		t.Fatalf("unexpected reset url: %s", dispatcher.url)
	}
	tok := dispatchedToken(t, dispatcher.url)

	errs, err := service.ChangePassword(ctx, tok, "newsecret")
	if err != nil || errs != nil {
		t.Fatalf("ChangePassword = (%v, %v)", errs, err)
	}

	u, _ := repo.FindByEmail(ctx, "al@x.com")
	if u.Password != "hashed:newsecret" {
		t.Fatalf("password = %q, want hashed:newsecret", u.Password)
	}
}

func TestChangePasswordInvalidTokenLeavesPasswordUnchanged(t *testing.T) {
	service, repo, _, _ := newTestService()
	ctx := context.Background()

	if errs, err := service.Register(ctx, "Al", "al@x.com", "secret1"); err != nil || errs != nil {
		t.Fatalf("Register = (%v, %v)", errs, err)
	}

	errs, err := service.ChangePassword(ctx, "b51afd2c-713e-4e6f-912c-74f4aa88c3e9", "newsecret")
	if err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if !hasFieldError(errs, "token") {
		t.Fatalf("expected token error, got %#v", errs)
	}

	u, _ := repo.FindByEmail(ctx, "al@x.com")
	if u.Password != "hashed:secret1" {
		t.Fatalf("password changed unexpectedly: %q", u.Password)
	}
}

func TestChangePasswordValidatesBeforeRedeem(t *testing.T) {
	service, _, kv, dispatcher := newTestService()
	ctx := context.Background()

	if errs, err := service.Register(ctx, "Al", "al@x.com", "secret1"); err != nil || errs != nil {
		t.Fatalf("Register = (%v, %v)", errs, err)
	}
	if errs, err := service.ForgotPassword(ctx, "al@x.com"); err != nil || errs != nil {
		t.Fatalf("ForgotPassword = (%v, %v)", errs, err)
	}
	tok := dispatchedToken(t, dispatcher.url)
	before := len(kv.values)

	// 短すぎるパスワード → トークンは消費されない
	errs, err := service.ChangePassword(ctx, tok, "123")
	if err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if !hasFieldError(errs, "password") {
		t.Fatalf("expected password error, got %#v", errs)
	}
	if len(kv.values) != before {
		t.Fatal("validation failure must not consume the token")
	}
}
