package models

import "time"

// User is the persisted account record. Password and Salt are stored in the
// users collection but must never leave the process; use Public for responses.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Password  string    `json:"password"` // hex PBKDF2 digest
	Salt      string    `json:"salt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// PublicUser is the outbound representation of a User.
type PublicUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Clone returns a copy. User holds no reference types, so a value copy is enough.
func (u User) Clone() User { return u }

// TokenPayload is the identity carried by a bearer token.
type TokenPayload struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"exp"`
}

// Session is what the local client keeps between runs after a login.
type Session struct {
	User      PublicUser `json:"user"`
	Token     string     `json:"token"`
	Timestamp time.Time  `json:"timestamp"`
}
