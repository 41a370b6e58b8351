// Command bootstrap-admin creates or promotes the first administrator
// directly against the database. The make-admin endpoint requires an
// existing admin, so a fresh deployment needs this once.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/lggm33/DUAD/internal/auth"
	"github.com/lggm33/DUAD/internal/config"
	"github.com/lggm33/DUAD/internal/dbpool"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/storage"
	"github.com/lggm33/DUAD/internal/users"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml (optional, env vars apply either way)")
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "Administrator", "admin display name")
	password := flag.String("password", "", "admin password (generated when empty)")
	flag.Parse()

	_ = godotenv.Load()

	if *email == "" {
		log.Fatal("missing required flag: -email")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := dbpool.NewSharedPool(cfg.Database.URL, cfg.Database.Pool)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	pg, err := storage.New(pool.DB(), cfg.Database.QueryTimeout.Duration)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	repo := users.NewPostgresRepository(pg, metrics.New(prometheus.NewRegistry()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	address := users.NormalizeEmail(*email)
	existing, err := repo.GetByEmail(ctx, address)
	switch {
	case err == nil:
		if existing.Role == auth.RoleAdmin {
			fmt.Printf("%s is already an admin (id %d), nothing to do\n", existing.Email, existing.ID)
			return
		}
		existing.Role = auth.RoleAdmin
		promoted, err := repo.Update(ctx, existing)
		if err != nil {
			log.Fatalf("promote user: %v", err)
		}
		fmt.Printf("promoted %s (id %d) to admin\n", promoted.Email, promoted.ID)

	case apperrors.IsCode(err, apperrors.ErrCodeUserNotFound):
		secret := *password
		generated := false
		if secret == "" {
			secret = uuid.NewString()
			generated = true
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		created, err := repo.Create(ctx, users.User{
			Email:        address,
			PasswordHash: string(hash),
			Role:         auth.RoleAdmin,
			IsActive:     true,
			Name:         *name,
		})
		if err != nil {
			log.Fatalf("create admin: %v", err)
		}
		fmt.Printf("created admin %s (id %d)\n", created.Email, created.ID)
		if generated {
			fmt.Printf("generated password: %s\n", secret)
			fmt.Println("store it now; it is not recoverable later")
		}

	default:
		log.Fatalf("look up user: %v", err)
	}
}
