package repo

// TokenStore хранит JWT сессии между запусками CLI.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	// Clear вызывается при logout.
	Clear() error
}
