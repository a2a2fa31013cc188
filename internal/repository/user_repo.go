package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrRikimaru/UserService/internal/models"
)

const userColumns = "id, name, surname, birth_date, email, active, created_at, updated_at"

// CreateUser persists a new user and fills in the generated id and
// timestamps. A racing insert with the same email surfaces as
// models.ErrDuplicateEmail via the unique constraint.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.emailIndex[user.Email]; ok {
			return fmt.Errorf("email %s: %w", user.Email, models.ErrDuplicateEmail)
		}
		r.nextUserID++
		user.ID = r.nextUserID
		now := time.Now().UTC()
		user.CreatedAt = now
		user.UpdatedAt = now
		clone := *user
		r.users[user.ID] = &clone
		r.emailIndex[user.Email] = user.ID
		return nil
	}

	err := r.db.QueryRowContext(ctx, `
        INSERT INTO users(name, surname, birth_date, email, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at
    `, user.Name, user.Surname, birthDateArg(user.BirthDate), user.Email, user.Active).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", user.Email, models.ErrDuplicateEmail)
	}
	return err
}

// GetUser loads a single user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		user, ok := r.users[id]
		if !ok {
			return nil, fmt.Errorf("id %d: %w", id, models.ErrUserNotFound)
		}
		clone := *user
		return &clone, nil
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=$1", id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("id %d: %w", id, models.ErrUserNotFound)
	}
	return user, err
}

// GetUserByEmail loads a single user by its unique email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		id, ok := r.emailIndex[email]
		if !ok {
			return nil, fmt.Errorf("email %s: %w", email, models.ErrUserNotFound)
		}
		clone := *r.users[id]
		return &clone, nil
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=$1", email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email %s: %w", email, models.ErrUserNotFound)
	}
	return user, err
}

// ExistsUserEmail reports whether any user already holds the email.
func (r *Repository) ExistsUserEmail(ctx context.Context, email string) (bool, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		_, ok := r.emailIndex[email]
		return ok, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)", email).Scan(&exists)
	return exists, err
}

// UpdateUser saves the mutable fields of an existing user.
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		current, ok := r.users[user.ID]
		if !ok {
			return fmt.Errorf("id %d: %w", user.ID, models.ErrUserNotFound)
		}
		if id, taken := r.emailIndex[user.Email]; taken && id != user.ID {
			return fmt.Errorf("email %s: %w", user.Email, models.ErrDuplicateEmail)
		}
		delete(r.emailIndex, current.Email)
		user.CreatedAt = current.CreatedAt
		user.UpdatedAt = time.Now().UTC()
		clone := *user
		r.users[user.ID] = &clone
		r.emailIndex[user.Email] = user.ID
		return nil
	}

	err := r.db.QueryRowContext(ctx, `
        UPDATE users
           SET name=$2, surname=$3, birth_date=$4, email=$5, active=$6, updated_at=now()
         WHERE id=$1
        RETURNING updated_at
    `, user.ID, user.Name, user.Surname, birthDateArg(user.BirthDate), user.Email, user.Active).
		Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("id %d: %w", user.ID, models.ErrUserNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", user.Email, models.ErrDuplicateEmail)
	}
	return err
}

// SetUserActive flips the active flag without touching any other column.
func (r *Repository) SetUserActive(ctx context.Context, id int64, active bool) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		user, ok := r.users[id]
		if !ok {
			return fmt.Errorf("id %d: %w", id, models.ErrUserNotFound)
		}
		user.Active = active
		user.UpdatedAt = time.Now().UTC()
		return nil
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET active=$2, updated_at=now() WHERE id=$1", id, active)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("id %d: %w", id, models.ErrUserNotFound)
	}
	return nil
}

// DeleteUser removes the user and all of its cards in one transaction. The
// explicit card delete keeps the cascade visible even though the foreign key
// also carries ON DELETE CASCADE.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		user, ok := r.users[id]
		if !ok {
			return fmt.Errorf("id %d: %w", id, models.ErrUserNotFound)
		}
		for cardID, card := range r.cards {
			if card.UserID == id {
				delete(r.panIndex, card.Number)
				delete(r.cards, cardID)
			}
		}
		delete(r.emailIndex, user.Email)
		delete(r.users, id)
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM payment_cards WHERE user_id=$1", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=$1", id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("id %d: %w", id, models.ErrUserNotFound)
	}
	return tx.Commit()
}

// ListUsers returns one page of users matching the filter plus the total
// match count.
func (r *Repository) ListUsers(ctx context.Context, filter models.UserFilter, page models.PageRequest) ([]models.User, int64, error) {
	page = page.Normalize()

	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		var matched []models.User
		for _, user := range r.users {
			if matchUser(user, filter) {
				matched = append(matched, *user)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
		return pageOfUsers(matched, page), int64(len(matched)), nil
	}

	p := &predicate{}
	if filter.Name != nil {
		p.add("name ILIKE '%' || ? || '%'", *filter.Name)
	}
	if filter.Surname != nil {
		p.add("surname ILIKE '%' || ? || '%'", *filter.Surname)
	}
	if filter.Active != nil {
		p.add("active = ?", *filter.Active)
	}
	if filter.BornBefore != nil {
		p.add("birth_date < ?", filter.BornBefore.Time)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users"+p.where(), p.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY id LIMIT %d OFFSET %d",
		userColumns, p.where(), page.Size, page.Offset())
	rows, err := r.db.QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

func matchUser(user *models.User, filter models.UserFilter) bool {
	if filter.Name != nil && !strings.Contains(strings.ToLower(user.Name), strings.ToLower(*filter.Name)) {
		return false
	}
	if filter.Surname != nil && !strings.Contains(strings.ToLower(user.Surname), strings.ToLower(*filter.Surname)) {
		return false
	}
	if filter.Active != nil && user.Active != *filter.Active {
		return false
	}
	if filter.BornBefore != nil {
		if user.BirthDate == nil || !user.BirthDate.Before(*filter.BornBefore) {
			return false
		}
	}
	return true
}

func pageOfUsers(users []models.User, page models.PageRequest) []models.User {
	start := page.Offset()
	if start >= len(users) {
		return nil
	}
	end := start + page.Size
	if end > len(users) {
		end = len(users)
	}
	return users[start:end]
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var birthDate sql.NullTime
	err := row.Scan(&user.ID, &user.Name, &user.Surname, &birthDate,
		&user.Email, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if birthDate.Valid {
		d := models.DateOf(birthDate.Time)
		user.BirthDate = &d
	}
	return &user, nil
}

func birthDateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}
