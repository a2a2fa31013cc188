package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/MrRikimaru/UserService/internal/models"
)

// Repository is the relational store for users and payment cards. It is
// backed by Postgres in production; when db is nil it falls back to a
// mutex-guarded in-memory backend, used only by tests.
type Repository struct {
	db *sql.DB

	mu         sync.RWMutex
	users      map[int64]*models.User
	cards      map[int64]*models.PaymentCard
	emailIndex map[string]int64
	panIndex   map[string]int64
	nextUserID int64
	nextCardID int64
}

// NewPGRepository constructs a Postgres-backed repository.
func NewPGRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// NewMemoryRepository constructs the in-memory backend for tests.
func NewMemoryRepository() *Repository {
	return &Repository{
		users:      make(map[int64]*models.User),
		cards:      make(map[int64]*models.PaymentCard),
		emailIndex: make(map[string]int64),
		panIndex:   make(map[string]int64),
	}
}

// Ping reports store readiness.
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is SQLSTATE 23505, a unique
// constraint violation, regardless of which Postgres driver raised it.
func isUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == "23505" {
		return true
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		return true
	}
	return false
}

// predicate accumulates WHERE clauses for the optional filters of a listing
// query. An absent filter contributes no clause, which is the same as an
// unconditionally true one.
type predicate struct {
	clauses []string
	args    []any
}

// add appends a clause written with `?` placeholders, rewriting them to the
// next positional $n arguments.
func (p *predicate) add(clause string, args ...any) {
	for _, a := range args {
		p.args = append(p.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(p.args)), 1)
	}
	p.clauses = append(p.clauses, clause)
}

func (p *predicate) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}
