package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pamperspets/petshaus/internal/config"
	"github.com/pamperspets/petshaus/internal/security"
)

// EnsureOwnerUser creates the site owner's account at boot when
// OWNER_EMAIL/OWNER_PASSWORD are configured and no such account exists.
func EnsureOwnerUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.OwnerEmail == "" || cfg.OwnerPassword == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.OwnerEmail))

	// check if the account exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.OwnerPassword, cfg.BcryptCost)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		`,
		uuid.NewString(), email, hash, cfg.OwnerName, now, now,
	)

	return err
}
