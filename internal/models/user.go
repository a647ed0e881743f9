package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name" json:"name"`
	Username  string    `bun:"username,unique" json:"username"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	Role      Role      `bun:"role,notnull" json:"role"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
