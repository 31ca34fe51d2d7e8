package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/token"
)

// User is the public view of an account. It never carries secrets.
type User struct {
	ID        uuid.UUID        `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Provider  account.Provider `json:"provider"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func newUser(i *account.Identity) *User {
	return &User{
		ID:        i.ID,
		Email:     i.Email,
		Name:      i.Name,
		Provider:  i.Provider,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// Result is returned by every operation that authenticates a user.
type Result struct {
	User   *User       `json:"user"`
	Tokens *token.Pair `json:"tokens"`
}

// Validation is the outcome of ValidateToken.
type Validation struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user,omitempty"`
}

// Profile is optional name data sent by federated clients. Apple only
// shares it on the first sign-in.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
