package models

// User is a registered fisherman.
// It maps to the `users` table in SQLite. PasswordHash is the hex digest produced
// by internal/password and is never serialized.
type User struct {
	ID           int64  `db:"user_id" json:"user_id"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
}
