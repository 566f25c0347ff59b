package models

import "time"

// Account is the persisted record of a registered user.
//
// AuthToken and TokenCreatedAt are either both nil or both set.
type Account struct {
	ID             string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	AuthToken      *string
	TokenCreatedAt *time.Time
	CreatedAt      time.Time
}

// AccountUpdate is a partial update of the mutable account fields.
// Nil fields are left untouched.
type AccountUpdate struct {
	PasswordHash *string
	FirstName    *string
	LastName     *string
}

// IsEmpty reports whether the update changes nothing.
func (u AccountUpdate) IsEmpty() bool {
	return u.PasswordHash == nil && u.FirstName == nil && u.LastName == nil
}

// PublicAccount is the projection of an Account returned to its owner.
type PublicAccount struct {
	ID             string     `json:"id"`
	EmailAddress   string     `json:"emailAddress"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	AuthToken      *string    `json:"authToken"`
	TokenCreatedAt *time.Time `json:"tokenCreatedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Public strips the password hash from the account.
func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		ID:             a.ID,
		EmailAddress:   a.Email,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		AuthToken:      a.AuthToken,
		TokenCreatedAt: a.TokenCreatedAt,
		CreatedAt:      a.CreatedAt,
	}
}
