// Command seedadmin creates (or keeps) the administrator account. Safe to run
// repeatedly: an existing account is left untouched apart from the role.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"campusshare.org/internal/auth"
)

func main() {
	log.SetFlags(0)
	var (
		dsn      = flag.String("dsn", os.Getenv("CAMPUSSHARE_PG_DSN"), "PostgreSQL DSN")
		email    = flag.String("email", "admin@campusshare.com", "Admin email")
		name     = flag.String("name", "Administrator", "Admin display name")
		dept     = flag.String("department", "Administration", "Admin department")
		password = flag.String("password", os.Getenv("CAMPUSSHARE_ADMIN_PASSWORD"), "Admin password")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or CAMPUSSHARE_PG_DSN")
	}
	if *password == "" {
		log.Fatal("missing password: provide via -password or CAMPUSSHARE_ADMIN_PASSWORD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	users := auth.NewPGStore(db)

	if existing, err := users.FindByEmail(ctx, *email); err == nil {
		if existing.IsAdmin() {
			log.Printf("admin %s already present", existing.Email)
			return
		}
		if _, err := users.UpdateRole(ctx, existing.ID, auth.RoleAdmin); err != nil {
			log.Fatalf("promote %s: %v", existing.Email, err)
		}
		log.Printf("promoted %s to admin", existing.Email)
		return
	} else if !errors.Is(err, auth.ErrNotFound) {
		log.Fatalf("lookup admin: %v", err)
	}

	user, err := auth.NewUser(*name, *email, *password, *dept)
	if err != nil {
		log.Fatalf("build admin: %v", err)
	}
	user.Role = auth.RoleAdmin

	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("create admin: %v", err)
	}
	log.Printf("created admin %s", user.Email)
}
