package models

import "time"

type User struct {
	ID       int64
	Email    string
	Name     string
	PassHash []byte
	// RefreshHash is nil when the user has no active session.
	RefreshHash []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserProfile is the read-only projection returned to callers.
// It never carries credential hashes.
type UserProfile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Event struct {
	Kind   string    `json:"event"`
	UserID int64     `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

func (u User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
