package identity

// Identity is a caller verified by the identity provider.
// It is never mutated locally.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
