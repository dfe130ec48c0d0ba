package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/auth-forge/internal/user"
)

// envelope は認証エンドポイント共通のレスポンス形式です。
type envelope struct {
	OK     bool         `json:"ok"`
	Errors []FieldError `json:"errors"`
}

// Handler は認証エンドポイントのHTTPハンドラー群です。
type Handler struct {
	service *Service
}

// NewHandler は Handler を作成します。
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

// Register は POST /auth/register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	errs, err := h.service.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondServerError(c)
		return
	}
	if errs != nil {
		respondValidation(c, errs)
		return
	}

	c.JSON(http.StatusOK, envelope{OK: true})
}

// Login は POST /auth/login のハンドラーです。
// 成功時にサーバー側セッションへユーザーIDを保存し、Cookieを発行します。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	u, errs, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServerError(c)
		return
	}
	if errs != nil {
		respondValidation(c, errs)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKeyUserID, u.ID)
	if err := session.Save(); err != nil {
		respondServerError(c)
		return
	}

	c.JSON(http.StatusOK, envelope{OK: true})
}

// Logout は POST /auth/logout のハンドラーです。
// サーバー側セッションを破棄し、Cookieを無効化します。
// セッション破棄に失敗した場合はCookieを消さずに500を返します。
func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondServerError(c)
		return
	}

	c.JSON(http.StatusOK, envelope{OK: true})
}

// CurrentUser は GET /auth/user のハンドラーです。
// RequireLogin ミドルウェアを前提とします。パスワードはレスポンスに含まれません。
func (h *Handler) CurrentUser(c *gin.Context) {
	userID := CurrentUserID(c)

	u, err := h.service.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		respondServerError(c)
		return
	}
	if u == nil {
		c.JSON(http.StatusUnauthorized, envelope{
			OK:     false,
			Errors: []FieldError{{Field: "session", Message: "Authentication required"}},
		})
		return
	}

	c.JSON(http.StatusOK, u)
}

// ConfirmEmail は POST /auth/confirm-email/:token のハンドラーです。
// トークンはUUID v4形式であることをストア参照の前に検査します。
func (h *Handler) ConfirmEmail(c *gin.Context) {
	tok := c.Param("token")
	if !isUUIDv4(tok) {
		respondValidation(c, []FieldError{{Field: "token", Message: "Invalid token"}})
		return
	}

	errs, err := h.service.ConfirmEmail(c.Request.Context(), tok)
	if err != nil {
		respondServerError(c)
		return
	}
	if errs != nil {
		respondValidation(c, errs)
		return
	}

	c.JSON(http.StatusOK, envelope{OK: true})
}

// ForgotPassword は POST /auth/forgot-password のハンドラーです。
// 未登録のメールアドレスでも成功レスポンスを返します。
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	errs, err := h.service.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		respondServerError(c)
		return
	}
	if errs != nil {
		respondValidation(c, errs)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ChangePassword は PATCH /auth/change-password/:token のハンドラーです。
func (h *Handler) ChangePassword(c *gin.Context) {
	tok := c.Param("token")
	if !isUUIDv4(tok) {
		respondValidation(c, []FieldError{{Field: "token", Message: "Invalid token"}})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c)
		return
	}

	errs, err := h.service.ChangePassword(c.Request.Context(), tok, req.Password)
	if err != nil {
		respondServerError(c)
		return
	}
	if errs != nil {
		respondValidation(c, errs)
		return
	}

	c.JSON(http.StatusOK, envelope{OK: true})
}

// ListUsers は GET /users のハンドラーです。
// パスワードはレスポンスに含まれません。
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		respondServerError(c)
		return
	}
	if users == nil {
		users = []user.User{}
	}

	c.JSON(http.StatusOK, users)
}

// isUUIDv4 はトークンがUUID v4形式かどうかを検査します。
func isUUIDv4(tok string) bool {
	parsed, err := uuid.Parse(tok)
	if err != nil {
		return false
	}
	return parsed.Version() == 4
}

func respondValidation(c *gin.Context, errs []FieldError) {
	c.JSON(http.StatusNotAcceptable, envelope{OK: false, Errors: errs})
}

func respondBadBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, envelope{
		OK:     false,
		Errors: []FieldError{{Field: "body", Message: "Invalid request body"}},
	})
}

func respondServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, envelope{
		OK:     false,
		Errors: []FieldError{{Field: "server", Message: "Something went wrong"}},
	})
}
