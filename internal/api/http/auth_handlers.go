package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/mind-engage/quizmaster/internal/auth/middleware"
)

// POST /auth/signup  { "email": "...", "password": "..." }
func SignupHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			http.Error(w, "email and password required", 400)
			return
		}
		var exists int
		err := db.QueryRowContext(r.Context(), `SELECT 1 FROM users WHERE email=$1`, email).Scan(&exists)
		if err == nil {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		if !errors.Is(err, sql.ErrNoRows) {
			http.Error(w, err.Error(), 500)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			http.Error(w, "hash password", 500)
			return
		}
		id := uuid.NewString()
		if _, err := db.ExecContext(r.Context(), `INSERT INTO users (id, email, password_hash, role, created_at)
			VALUES ($1,$2,$3,'learner',$4)`, id, email, string(hash), time.Now().Unix()); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id, "email": email})
	}
}

// POST /auth/login  { "email": "...", "password": "..." }
func LoginHandler(db *sql.DB, a *authmw.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		var id, hash, role string
		err := db.QueryRowContext(r.Context(), `SELECT id, password_hash, role FROM users WHERE email=$1`, email).Scan(&id, &hash, &role)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		tok, err := a.IssueJWT(id, role)
		if err != nil {
			http.Error(w, "issue token", 500)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": tok, "role": role})
	}
}

// EnsureAdmin seeds the bootstrap admin account at startup. No-op when the
// env vars are unset or the account already exists.
func EnsureAdmin(ctx context.Context, db *sql.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=$1`, email).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1,$2,$3,'admin',$4)`, uuid.NewString(), email, string(hash), time.Now().Unix()); err != nil {
		return err
	}
	log.Printf("seeded admin account %s", email)
	return nil
}
