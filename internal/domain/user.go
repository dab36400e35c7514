package domain

type User struct {
	ID        string `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"nombre" db:"first_name"`
	LastName  string `json:"apellido,omitempty" db:"last_name"`
}

// DisplayName is what the header greets the user with.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}
