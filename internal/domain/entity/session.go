package entity

import "time"

// SessionPointer registro mínimo que permite restaurar la sesión desde el almacén local.
type SessionPointer struct {
	UserID    string
	Email     string
	Timestamp time.Time
}

// Account par usuario + empresa que resuelve una sesión.
type Account struct {
	User    *User
	Company *Company
}

// Clone copia profunda del par.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{User: a.User.Clone(), Company: a.Company.Clone()}
}
