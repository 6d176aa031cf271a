// Package models contains data structures for the application's domain models.
package models

import "time"

// User is an Ideon member. Only the identity collaborator owns users; ideas and
// comments carry UserSnapshot copies.
type User struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	AvatarURL               string  `json:"avatarUrl"`
	Title                   string  `json:"title"`
	Email                   string  `json:"email"`
	Phone                   string  `json:"phone"`
	Bio                     string  `json:"bio"`
	Password                string  `json:"password,omitempty"`
	EmailVerified           bool    `json:"emailVerified"`
	VerificationCode        *string `json:"verificationCode,omitempty"`
	VerificationCodeExpires *Millis `json:"verificationCodeExpires,omitempty"`
}

// UserSnapshot is the by-value copy of a User embedded in ideas and comments.
// It never carries credentials.
type UserSnapshot struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatarUrl"`
	Title         string `json:"title"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Bio           string `json:"bio"`
	EmailVerified bool   `json:"emailVerified"`
}

// Snapshot copies the public profile fields of u.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:            u.ID,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		Title:         u.Title,
		Email:         u.Email,
		Phone:         u.Phone,
		Bio:           u.Bio,
		EmailVerified: u.EmailVerified,
	}
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.VerificationCode != nil {
		code := *u.VerificationCode
		c.VerificationCode = &code
	}
	if u.VerificationCodeExpires != nil {
		exp := *u.VerificationCodeExpires
		c.VerificationCodeExpires = &exp
	}
	return &c
}

// Millis is a unix timestamp in milliseconds, the wire format used for every
// createdAt and expiry field.
type Millis int64

// MillisOf converts t to Millis.
func MillisOf(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time converts m back to a time.Time.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}
