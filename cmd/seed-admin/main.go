package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"anilog/internal/auth"
	"anilog/pkg/database"
)

// Creates (or resets the password of) an admin account. Moderation
// endpoints are unusable until at least one admin exists.
func main() {
	var (
		username = flag.String("username", "admin", "admin username")
		password = flag.String("password", "", "admin password (required)")
	)
	flag.Parse()

	if *password == "" {
		log.Fatal("-password is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(database.DefaultConfig())
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password failed: %v", err)
	}

	repo := auth.NewRepo(db)
	if err := repo.UpsertAdmin(ctx, auth.Admin{
		ID:           uuid.NewString(),
		Username:     *username,
		PasswordHash: string(hash),
	}); err != nil {
		log.Fatalf("seed admin failed: %v", err)
	}

	log.Printf("admin account %q is ready", *username)
}
