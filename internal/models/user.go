package models

// Roles a user may hold.
const (
	RoleCoach   = "coach"
	RoleAthlete = "athlete"
)

// User represents an athlete or coach account.
type User struct {
	ID             int64   `json:"id_user" db:"id_user"`
	Username       string  `json:"username" db:"username"`
	Name           string  `json:"nom" db:"nom"`
	Surname        string  `json:"prenom" db:"prenom"`
	Email          string  `json:"email" db:"email"`
	Token          *string `json:"token" db:"token"`
	TokenExpiresAt *string `json:"-" db:"token_expires_at"`
	PasswordHash   string  `json:"-" db:"password"` // Never expose this to the client
	Role           string  `json:"role" db:"role"`
}

// UserInput is the full set of writable user fields, used for create and replace.
type UserInput struct {
	Username string `json:"username" validate:"required"`
	Name     string `json:"nom"`
	Surname  string `json:"prenom"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=coach athlete"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// IsCoach reports whether the user holds the coach role.
func (u User) IsCoach() bool {
	return u.Role == RoleCoach
}
