package main

import (
	"context"
	"flag"
	"log"

	"go-pos-invoice/internal/config"
	"go-pos-invoice/internal/repository"
	"go-pos-invoice/internal/service"
	"go-pos-invoice/pkg/database"
	"go-pos-invoice/pkg/jwt"
	"go-pos-invoice/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	email := flag.String("email", cfg.AdminEmail, "account to reset")
	password := flag.String("password", cfg.AdminPassword, "new password")
	flag.Parse()

	zl, err := logger.New(cfg.LogLevel, cfg.IsDevelopment(), "reset-password")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	if cfg.StoreDriver != config.DriverPostgres {
		zl.Fatal("reset-password only works against postgres", zap.String("driver", cfg.StoreDriver))
	}
	if len(*password) < 6 {
		zl.Fatal("new password must be at least 6 characters")
	}

	db, err := database.Open(cfg.Database, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	auth := service.NewAuthService(repository.NewUserRepo(db), jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL), zl)
	if err := auth.ResetPassword(context.Background(), *email, *password); err != nil {
		zl.Fatal("password reset failed", zap.String("email", *email), zap.Error(err))
	}

	zl.Info("password reset, existing sessions revoked", zap.String("email", *email))
}
