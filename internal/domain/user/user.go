// Package user holds the account entity: credentials, profile fields, the
// avatar blob and the set of active session tokens.
package user

import (
	"slices"
	"strings"
	"time"

	"github.com/taskhive/taskhive/internal/domain/errs"
	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// User represents a registered account.
type User struct {
	id           uuid.UUID
	name         string
	email        string
	passwordHash string
	age          int
	avatar       []byte
	tokens       []string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewUser creates a new account. The plaintext password is validated and
// hashed here; it is never stored on the entity.
func NewUser(name, email, password string, age int) (*User, error) {
	u := &User{
		id:        uuid.NewUUID(),
		createdAt: time.Now().UTC(),
		updatedAt: time.Now().UTC(),
	}

	if err := u.SetName(name); err != nil {
		return nil, err
	}
	if err := u.SetEmail(email); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	if err := u.SetAge(age); err != nil {
		return nil, err
	}

	return u, nil
}

// Reconstruct rehydrates a user from storage without re-validating or
// re-hashing anything. The digest loaded here is the digest that gets saved
// back, so an unrelated save never touches the password.
func Reconstruct(
	id uuid.UUID,
	name, email, passwordHash string,
	age int,
	avatar []byte,
	tokens []string,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		id:           id,
		name:         name,
		email:        email,
		passwordHash: passwordHash,
		age:          age,
		avatar:       avatar,
		tokens:       tokens,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the account id.
func (u *User) ID() uuid.UUID {
	return u.id
}

// Name returns the display name.
func (u *User) Name() string {
	return u.name
}

// Email returns the lowercased email address.
func (u *User) Email() string {
	return u.email
}

// PasswordHash returns the stored bcrypt digest.
func (u *User) PasswordHash() string {
	return u.passwordHash
}

// Age returns the age.
func (u *User) Age() int {
	return u.age
}

// Avatar returns the stored avatar bytes, nil when none is set.
func (u *User) Avatar() []byte {
	return u.avatar
}

// HasAvatar reports whether an avatar is stored.
func (u *User) HasAvatar() bool {
	return len(u.avatar) > 0
}

// Tokens returns a copy of the active session token set.
func (u *User) Tokens() []string {
	return slices.Clone(u.tokens)
}

// CreatedAt returns the creation time.
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// UpdatedAt returns the last modification time.
func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

// SetName updates the display name.
func (u *User) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.ErrInvalidInput
	}
	u.name = name
	u.touch()
	return nil
}

// SetEmail normalizes and updates the email address.
func (u *User) SetEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !isValidEmail(email) {
		return errs.ErrInvalidInput
	}
	u.email = email
	u.touch()
	return nil
}

// SetAge updates the age. Negative values are rejected.
func (u *User) SetAge(age int) error {
	if age < 0 {
		return errs.ErrInvalidInput
	}
	u.age = age
	u.touch()
	return nil
}

// SetPassword validates the plaintext password and replaces the stored digest.
// This is the only path that hashes; loading and saving a user leaves the
// digest untouched.
func (u *User) SetPassword(plaintext string) error {
	if err := ValidatePassword(plaintext); err != nil {
		return err
	}

	digest, err := HashPassword(plaintext)
	if err != nil {
		return err
	}

	u.passwordHash = digest
	u.touch()
	return nil
}

// CheckPassword reports whether the plaintext matches the stored digest.
func (u *User) CheckPassword(plaintext string) bool {
	return VerifyPassword(plaintext, u.passwordHash)
}

// AddToken appends a session token to the active set.
func (u *User) AddToken(token string) {
	u.tokens = append(u.tokens, token)
	u.touch()
}

// RemoveToken removes one session token from the active set. Other sessions
// stay valid.
func (u *User) RemoveToken(token string) {
	u.tokens = slices.DeleteFunc(u.tokens, func(t string) bool {
		return t == token
	})
	u.touch()
}

// ClearTokens revokes every active session.
func (u *User) ClearTokens() {
	u.tokens = nil
	u.touch()
}

// HasToken reports whether a token is in the active set.
func (u *User) HasToken(token string) bool {
	return slices.Contains(u.tokens, token)
}

// SetAvatar replaces the stored avatar bytes.
func (u *User) SetAvatar(data []byte) {
	u.avatar = data
	u.touch()
}

// ClearAvatar removes the stored avatar.
func (u *User) ClearAvatar() {
	u.avatar = nil
	u.touch()
}

func (u *User) touch() {
	u.updatedAt = time.Now().UTC()
}

// isValidEmail does a minimal shape check; the HTTP layer runs the stricter
// validator on signup and update payloads.
func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
