package domain

import "time"

type User struct {
	ID           string
	Email        string
	Nickname     string
	PasswordHash string // argon2id encoded
	Image        string // optional avatar URL
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
