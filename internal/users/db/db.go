package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ticketnepal/internal/models"

	"github.com/uptrace/bun"
)

// DB reads the users table. Accounts are managed by the identity service;
// this service only looks them up.
type DB struct {
	Bun *bun.DB
}

func NewDB(b *bun.DB) *DB {
	return &DB{Bun: b}
}

func (d *DB) FindUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := d.Bun.NewSelect().Model(&u).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, lookupErr(err)
	}
	return normalized(&u)
}

func (d *DB) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := d.Bun.NewSelect().
		Model(&u).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, lookupErr(err)
	}
	return normalized(&u)
}

// normalized maps legacy role spellings stored in old rows onto the Role enum.
func normalized(u *models.User) (*models.User, error) {
	role, err := models.NormalizeRole(string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = role
	return u, nil
}

func lookupErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user: %w", models.ErrNotFound)
	}
	return models.StoreError("select user", err)
}
