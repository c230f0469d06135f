// seed_admin creates the first ADMIN user.
//
//	go run scripts/seed_admin.go -name "Owner" -email owner@example.com -password '...'
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"loan-backend/internal/auth"
	"loan-backend/internal/config"
	"loan-backend/internal/db"
	"loan-backend/internal/repositories"
	"loan-backend/internal/services"
)

func main() {
	name := flag.String("name", "Administrator", "display name")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "login email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "login password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	defer pool.Close()

	users := repositories.NewUserRepository(pool)
	svc := services.NewUserService(users, auth.NewJWTManager(cfg), services.NewTOTPService(users, cfg.Security.TOTPIssuer))

	user, err := svc.CreateAdmin(ctx, *name, *email, *password)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	fmt.Printf("Created admin %s (id %d)\n", user.Email, user.ID)
}
