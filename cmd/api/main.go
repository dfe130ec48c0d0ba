// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	sessredis "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/auth-forge/internal/auth"
	"github.com/yourusername/auth-forge/internal/config"
	"github.com/yourusername/auth-forge/internal/password"
	"github.com/yourusername/auth-forge/internal/token"
	"github.com/yourusername/auth-forge/internal/user"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// ユーザーストア（SQLite）を開く
	users, err := user.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open user store: %v", err)
	}
	defer users.Close()

	// トークンストア（Redis）への接続
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	issuer := token.NewIssuer(token.NewRedisStore(rdb), cfg.FrontendBaseURL)

	// メール送信キューの起動
	mailQueue, err := setupMail(cfg)
	if err != nil {
		log.Fatalf("Failed to set up mail queue: %v", err)
	}
	mailQueue.StartWorkers()

	service := auth.NewService(users, issuer, password.NewArgon2idHasher(), mailQueue)
	handler := auth.NewHandler(service)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// セッションストアの設定（サーバー側状態はRedis、Cookieは参照のみ）
	store, err := sessredis.NewStore(10, "tcp", opt.Addr, opt.Username, opt.Password, []byte(cfg.SessionSecret))
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAgeDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(cfg.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, handler)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "auth-forge-api",
		"version": "0.1.0",
	})
}

// setupRoutes は認証エンドポイントの配線を行います。
func setupRoutes(router *gin.Engine, handler *auth.Handler) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", handler.Register)
		authRoutes.POST("/login", handler.Login)
		authRoutes.GET("/user", auth.RequireLogin(), handler.CurrentUser)
		authRoutes.POST("/logout", auth.RequireLogin(), handler.Logout)
		authRoutes.POST("/confirm-email/:token", handler.ConfirmEmail)
		authRoutes.POST("/forgot-password", handler.ForgotPassword)
		authRoutes.PATCH("/change-password/:token", handler.ChangePassword)
	}

	// ユーザー一覧もセッション必須で公開する
	router.GET("/users", auth.RequireLogin(), handler.ListUsers)
}
