package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"circulapp/internal/adapter/api"
	"circulapp/internal/adapter/api/handler"
	apimiddleware "circulapp/internal/adapter/api/middleware"
	"circulapp/internal/adapter/api/router"
	"circulapp/internal/adapter/repository"
	"circulapp/internal/adapter/repository/memory"
	domainrepo "circulapp/internal/domain/repository"
	"circulapp/internal/infrastructure/firebase"
	"circulapp/internal/infrastructure/mongodb"
	"circulapp/internal/infrastructure/ratelimit"
	"circulapp/internal/infrastructure/security"
	"circulapp/internal/infrastructure/websocket"
	"circulapp/internal/usecase"
	"circulapp/pkg/config"
	"circulapp/pkg/logger"
	"circulapp/pkg/response"
)

type repositories struct {
	chats    domainrepo.ChatRepository
	users    domainrepo.UserRepository
	products domainrepo.ProductRepository
	probe    handler.Pinger
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	response.SetDebug(!cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos := openStorage(ctx, cfg)
	defer repos.close()

	verifier, tokens := buildAuth(ctx, cfg, repos.users)

	var limiter *ratelimit.RateLimiter
	var chatLimiter usecase.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewRateLimiter(ratelimit.DefaultLimits)
		limiter.StartCleanup(ctx, 10*time.Minute)
		chatLimiter = limiter
	}

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	authUseCase := usecase.NewAuthUseCase(repos.users, security.NewPasswordHasher(0), tokens, chatLimiter)
	productUseCase := usecase.NewProductUseCase(repos.products, repos.users)
	chatUseCase := usecase.NewChatUseCase(repos.chats, repos.users, repos.products, wsManager, chatLimiter)
	wsManager.SetGateway(chatUseCase)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = api.NewValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(apimiddleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)

	router.Setup(e, router.Handlers{
		Auth:      handler.NewAuthHandler(authUseCase),
		Product:   handler.NewProductHandler(productUseCase),
		Chat:      handler.NewChatHandler(chatUseCase),
		Health:    handler.NewHealthHandler(cfg.StorageDriver, repos.probe),
		WebSocket: handler.NewWebSocketHandler(wsManager, authMiddleware, cfg.CORSAllowOrigins),
	}, authMiddleware, limiter)

	go func() {
		logger.Info("Starting server on port %s (storage=%s, auth=%s)", cfg.ServerPort, cfg.StorageDriver, cfg.AuthProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) repositories {
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return repositories{
			chats:    store.Chats(),
			users:    store.Users(),
			products: store.Products(),
			close:    func() {},
		}

	case "firestore":
		client, err := firebase.NewFirestoreClient(ctx, cfg.FirebaseProject, cfg.FirebaseServiceAccountJSON, cfg.FirebaseServiceAccountPath)
		if err != nil {
			logger.Fatal("Failed to create Firestore client: %v", err)
		}
		logger.Info("Connected to Firestore project %s", cfg.FirebaseProject)

		users := repository.NewFirestoreUserRepository(client, cfg.FirestoreTimeout)
		products := repository.NewFirestoreProductRepository(client, cfg.FirestoreTimeout)
		return repositories{
			chats:    repository.NewFirestoreChatRepository(client, users, products, cfg.FirestoreTimeout),
			users:    users,
			products: products,
			probe:    firebase.FirestoreProbe{Client: client},
			close: func() {
				if err := client.Close(); err != nil {
					logger.Error("Failed to close Firestore client: %v", err)
				}
			},
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()

	db, err := mongodb.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB: %v", err)
	}
	if err := mongodb.EnsureIndexes(connectCtx, db); err != nil {
		logger.Fatal("Failed to create MongoDB indexes: %v", err)
	}
	logger.Info("Connected to MongoDB database %s", cfg.MongoDatabase)

	return repositories{
		chats:    repository.NewMongoChatRepository(db, cfg.MongoTimeout),
		users:    repository.NewMongoUserRepository(db, cfg.MongoTimeout),
		products: repository.NewMongoProductRepository(db, cfg.MongoTimeout),
		probe:    mongodb.Probe{DB: db},
		close: func() {
			if err := mongodb.Disconnect(context.Background(), db); err != nil {
				logger.Error("Failed to disconnect from MongoDB: %v", err)
			}
		},
	}
}

// buildAuth returns the bearer-token verifier and, for password auth, the
// issuer used by register and login.
func buildAuth(ctx context.Context, cfg *config.Config, users domainrepo.UserRepository) (apimiddleware.TokenVerifier, usecase.TokenIssuer) {
	if cfg.AuthProvider == "firebase" {
		client, err := firebase.NewAuthClient(ctx, cfg.FirebaseProject, cfg.FirebaseServiceAccountJSON, cfg.FirebaseServiceAccountPath)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Auth: %v", err)
		}
		return firebase.NewFirebaseAuthClient(client, users), nil
	}

	tokens := security.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	return tokens, tokens
}
