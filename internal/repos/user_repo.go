package repos

import (
	"database/sql"
	"errors"
	"strings"

	"storefront/internal/domain"

	"github.com/jmoiron/sqlx"
)

var ErrEmailTaken = errors.New("email already registered")

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// UserRow is a user together with its password hash; only the sandbox
// auth service ever sees it.
type UserRow struct {
	domain.User
	Hash string `db:"password_hash"`
}

func (r *UserRepo) ByEmail(email string) (*UserRow, error) {
	var u UserRow
	err := r.DB.Get(&u, `SELECT id,email,first_name,last_name,password_hash FROM users WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*UserRow, error) {
	var u UserRow
	err := r.DB.Get(&u, `SELECT id,email,first_name,last_name,password_hash FROM users WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(u UserRow) error {
	_, err := r.DB.Exec(`
		INSERT INTO users(id,email,first_name,last_name,password_hash)
		VALUES(?,?,?,?,?)
	`, u.ID, u.Email, u.FirstName, u.LastName, u.Hash)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unique") {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepo) UpdateNames(id, firstName, lastName string) error {
	res, err := r.DB.Exec(`UPDATE users SET first_name=?, last_name=? WHERE id=?`, firstName, lastName, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
