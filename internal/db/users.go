package db

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 30 * 24 * time.Hour

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotApproved        = errors.New("account not approved")
)

type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	UserType        string    `json:"userType"`
	Grade           string    `json:"grade,omitempty"`
	ClassName       string    `json:"className,omitempty"`
	StudentNumber   string    `json:"studentNumber,omitempty"`
	IsApproved      bool      `json:"isApproved"`
	PasswordChanged bool      `json:"passwordChanged"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u.UserType == "admin"
}

const userColumns = `id, email, full_name, user_type, grade, class_name,
	student_number, is_approved, password_changed, created_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.UserType, &u.Grade,
		&u.ClassName, &u.StudentNumber, &u.IsApproved, &u.PasswordChanged, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateUser registers a new account with a hashed initial password. Admins
// pre-register students, so new students start approved with
// password_changed=0 until they pick their own password.
func (d *DB) CreateUser(email, fullName, password, userType, grade, className, studentNumber string, approved bool) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	res, err := d.sql.Exec(`INSERT INTO users
		(email, full_name, user_type, grade, class_name, student_number, password_hash, is_approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		email, fullName, userType, grade, className, studentNumber, string(hash), approved)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return d.GetUserByID(id)
}

func (d *DB) GetUserByID(id int64) (*User, error) {
	return scanUser(d.sql.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

func (d *DB) GetUserByEmail(email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	return scanUser(d.sql.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// Authenticate verifies the password and approval state for an email.
func (d *DB) Authenticate(email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	var id int64
	var hash string
	err := d.sql.QueryRow("SELECT id, password_hash FROM users WHERE email = ?", email).Scan(&id, &hash)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := d.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if !u.IsApproved {
		return nil, ErrNotApproved
	}
	return u, nil
}

// ChangePassword replaces the hash and marks the initial password as changed.
func (d *DB) ChangePassword(userID int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = d.sql.Exec("UPDATE users SET password_hash = ?, password_changed = 1 WHERE id = ?",
		string(hash), userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (d *DB) ListUsers() ([]User, error) {
	rows, err := d.sql.Query("SELECT " + userColumns + " FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.UserType, &u.Grade,
			&u.ClassName, &u.StudentNumber, &u.IsApproved, &u.PasswordChanged, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (d *DB) ApproveUser(id int64) error {
	res, err := d.sql.Exec("UPDATE users SET is_approved = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("approve user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) DeleteUser(id int64) error {
	_, err := d.sql.Exec("DELETE FROM users WHERE id = ?", id)
	return err
}

// EnsureAdmin creates or promotes the configured admin account at startup.
func (d *DB) EnsureAdmin(email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil
	}

	_, err := d.GetUserByEmail(email)
	if errors.Is(err, ErrNotFound) {
		name := strings.Split(email, "@")[0]
		_, err = d.CreateUser(email, name, password, "admin", "", "", "", true)
		return err
	}
	if err != nil {
		return err
	}
	_, err = d.sql.Exec("UPDATE users SET user_type = 'admin', is_approved = 1 WHERE email = ?", email)
	return err
}

// Sessions

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (d *DB) CreateSession(userID int64) (token string, expires time.Time, err error) {
	token, err = generateToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires = time.Now().Add(sessionTTL)

	_, err = d.sql.Exec("INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, token, expires)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expires, nil
}

func (d *DB) GetUserBySession(token string) (*User, error) {
	var userID int64
	var expiresAt time.Time
	err := d.sql.QueryRow("SELECT user_id, expires_at FROM sessions WHERE token = ?", token).
		Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if time.Now().After(expiresAt) {
		d.sql.Exec("DELETE FROM sessions WHERE token = ?", token)
		return nil, ErrNotFound
	}
	return d.GetUserByID(userID)
}

func (d *DB) DeleteSession(token string) {
	d.sql.Exec("DELETE FROM sessions WHERE token = ?", token)
}
