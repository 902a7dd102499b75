package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ilm2/server/internal/auth"
	"github.com/ilm2/server/internal/config"
	"github.com/ilm2/server/internal/db"
	httphandler "github.com/ilm2/server/internal/http"
	"github.com/ilm2/server/internal/http/handlers"
	"github.com/ilm2/server/internal/mail"
	"github.com/ilm2/server/internal/repo"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	usuarioRepo := repo.NewUsuarioRepo(database)
	otpRepo := repo.NewOTPRepo(database)

	// Production vs dev strategies are fixed here, once, from configuration.
	var (
		codes  auth.CodeSource = auth.NewRandomSource()
		hasher auth.CodeHasher = auth.NewBcryptHasher()
		sender mail.Sender     = mail.NewSendGridSender(cfg.SendGridKey, cfg.FromEmail)
	)
	if cfg.DevMode {
		log.Println("DEV_MODE enabled: fixed login code, weakened code hashing, console mail")
		codes = auth.NewFixedSource()
		hasher = auth.NewDevHasher()
		sender = mail.ConsoleSender{}
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)
	authService := auth.NewAuthService(usuarioRepo, otpRepo, codes, hasher, tokens, sender, cfg.OTPTTL, cfg.OTPMaxAttempts)
	authHandler := handlers.NewAuthHandler(authService)

	router := httphandler.NewRouter(authHandler, tokens)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
