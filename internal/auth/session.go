package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// sessionKeyUserID はセッションに保存する認証済みユーザーIDのキーです。
	sessionKeyUserID = "userId"

	// ContextUserIDKey は、ハンドラー間でログイン済みユーザーIDを共有するためのキーです。
	ContextUserIDKey = "auth.userId"
)

// RequireLogin はセッションを検証するミドルウェアを返します。
// 未ログインのリクエストはハンドラーに到達する前に401で拒否されます。
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := readUserID(session.Get(sessionKeyUserID))
		if userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
				OK:     false,
				Errors: []FieldError{{Field: "session", Message: "Authentication required"}},
			})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID はミドルウェアが設定した認証済みユーザーIDを返します。
func CurrentUserID(c *gin.Context) int64 {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// readUserID はセッションストアのシリアライズ差を吸収してIDを読み取ります。
func readUserID(v interface{}) int64 {
	switch id := v.(type) {
	case int64:
		return id
	case int:
		return int64(id)
	case float64:
		return int64(id)
	default:
		return 0
	}
}
