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

const cardColumns = "id, user_id, number, holder, expiration_date, active, created_at, updated_at"

// CreateCard inserts a card for its owning user. The owner row is locked FOR
// UPDATE for the duration of the count-then-insert so that concurrent
// creations for the same user serialize and the card limit cannot be
// overshot. The unique constraint on number backstops racing duplicates.
func (r *Repository) CreateCard(ctx context.Context, card *models.PaymentCard) error {
	if r.db == nil {
		// The single mutex held across check-then-insert gives the memory
		// backend the same atomicity as the row lock.
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.users[card.UserID]; !ok {
			return fmt.Errorf("id %d: %w", card.UserID, models.ErrUserNotFound)
		}
		if _, ok := r.panIndex[card.Number]; ok {
			return fmt.Errorf("number %s: %w", card.Number, models.ErrDuplicateCardNumber)
		}
		count := 0
		for _, c := range r.cards {
			if c.UserID == card.UserID {
				count++
			}
		}
		if count >= models.MaxCardsPerUser {
			return fmt.Errorf("user %d: %w", card.UserID, models.ErrCardLimitExceeded)
		}
		r.nextCardID++
		card.ID = r.nextCardID
		now := time.Now().UTC()
		card.CreatedAt = now
		card.UpdatedAt = now
		clone := *card
		r.cards[card.ID] = &clone
		r.panIndex[card.Number] = card.ID
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var ownerID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM users WHERE id=$1 FOR UPDATE", card.UserID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("id %d: %w", card.UserID, models.ErrUserNotFound)
	}
	if err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payment_cards WHERE user_id=$1", card.UserID).Scan(&count); err != nil {
		return err
	}
	if count >= models.MaxCardsPerUser {
		return fmt.Errorf("user %d: %w", card.UserID, models.ErrCardLimitExceeded)
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO payment_cards(user_id, number, holder, expiration_date, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at
    `, card.UserID, card.Number, card.Holder, card.ExpirationDate.Time, card.Active).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("number %s: %w", card.Number, models.ErrDuplicateCardNumber)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetCard loads a single card by id.
func (r *Repository) GetCard(ctx context.Context, id int64) (*models.PaymentCard, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		card, ok := r.cards[id]
		if !ok {
			return nil, fmt.Errorf("id %d: %w", id, models.ErrPaymentCardNotFound)
		}
		clone := *card
		return &clone, nil
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM payment_cards WHERE id=$1", id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("id %d: %w", id, models.ErrPaymentCardNotFound)
	}
	return card, err
}

// GetCardByNumber loads a single card by its unique number.
func (r *Repository) GetCardByNumber(ctx context.Context, number string) (*models.PaymentCard, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		id, ok := r.panIndex[number]
		if !ok {
			return nil, fmt.Errorf("number %s: %w", number, models.ErrPaymentCardNotFound)
		}
		clone := *r.cards[id]
		return &clone, nil
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM payment_cards WHERE number=$1", number)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("number %s: %w", number, models.ErrPaymentCardNotFound)
	}
	return card, err
}

// GetCardForUser loads a card scoped to its owning user.
func (r *Repository) GetCardForUser(ctx context.Context, userID, cardID int64) (*models.PaymentCard, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		card, ok := r.cards[cardID]
		if !ok || card.UserID != userID {
			return nil, fmt.Errorf("id %d for user %d: %w", cardID, userID, models.ErrPaymentCardNotFound)
		}
		clone := *card
		return &clone, nil
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM payment_cards WHERE id=$1 AND user_id=$2", cardID, userID)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("id %d for user %d: %w", cardID, userID, models.ErrPaymentCardNotFound)
	}
	return card, err
}

// ExistsCardNumber reports whether any card already holds the number.
func (r *Repository) ExistsCardNumber(ctx context.Context, number string) (bool, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		_, ok := r.panIndex[number]
		return ok, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM payment_cards WHERE number=$1)", number).Scan(&exists)
	return exists, err
}

// CountCards returns the number of cards owned by the user.
func (r *Repository) CountCards(ctx context.Context, userID int64) (int, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		count := 0
		for _, card := range r.cards {
			if card.UserID == userID {
				count++
			}
		}
		return count, nil
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payment_cards WHERE user_id=$1", userID).Scan(&count)
	return count, err
}

// UpdateCard saves the mutable fields of an existing card.
func (r *Repository) UpdateCard(ctx context.Context, card *models.PaymentCard) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		current, ok := r.cards[card.ID]
		if !ok {
			return fmt.Errorf("id %d: %w", card.ID, models.ErrPaymentCardNotFound)
		}
		if id, taken := r.panIndex[card.Number]; taken && id != card.ID {
			return fmt.Errorf("number %s: %w", card.Number, models.ErrDuplicateCardNumber)
		}
		delete(r.panIndex, current.Number)
		card.UserID = current.UserID
		card.CreatedAt = current.CreatedAt
		card.UpdatedAt = time.Now().UTC()
		clone := *card
		r.cards[card.ID] = &clone
		r.panIndex[card.Number] = card.ID
		return nil
	}

	err := r.db.QueryRowContext(ctx, `
        UPDATE payment_cards
           SET number=$2, holder=$3, expiration_date=$4, active=$5, updated_at=now()
         WHERE id=$1
        RETURNING updated_at
    `, card.ID, card.Number, card.Holder, card.ExpirationDate.Time, card.Active).Scan(&card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("id %d: %w", card.ID, models.ErrPaymentCardNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("number %s: %w", card.Number, models.ErrDuplicateCardNumber)
	}
	return err
}

// SetCardActive flips the active flag without touching any other column.
func (r *Repository) SetCardActive(ctx context.Context, id int64, active bool) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		card, ok := r.cards[id]
		if !ok {
			return fmt.Errorf("id %d: %w", id, models.ErrPaymentCardNotFound)
		}
		card.Active = active
		card.UpdatedAt = time.Now().UTC()
		return nil
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE payment_cards SET active=$2, updated_at=now() WHERE id=$1", id, active)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("id %d: %w", id, models.ErrPaymentCardNotFound)
	}
	return nil
}

// DeleteCard removes a single card.
func (r *Repository) DeleteCard(ctx context.Context, id int64) error {
	if r.db == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		card, ok := r.cards[id]
		if !ok {
			return fmt.Errorf("id %d: %w", id, models.ErrPaymentCardNotFound)
		}
		delete(r.panIndex, card.Number)
		delete(r.cards, id)
		return nil
	}

	res, err := r.db.ExecContext(ctx, "DELETE FROM payment_cards WHERE id=$1", id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("id %d: %w", id, models.ErrPaymentCardNotFound)
	}
	return nil
}

// CardsOfUser returns all cards owned by the user, ordered by id.
func (r *Repository) CardsOfUser(ctx context.Context, userID int64) ([]models.PaymentCard, error) {
	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		var cards []models.PaymentCard
		for _, card := range r.cards {
			if card.UserID == userID {
				cards = append(cards, *card)
			}
		}
		sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
		return cards, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+cardColumns+" FROM payment_cards WHERE user_id=$1 ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.PaymentCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// ListCards returns one page of cards matching the filter plus the total
// match count.
func (r *Repository) ListCards(ctx context.Context, filter models.CardFilter, page models.PageRequest) ([]models.PaymentCard, int64, error) {
	page = page.Normalize()

	if r.db == nil {
		r.mu.RLock()
		defer r.mu.RUnlock()
		var matched []models.PaymentCard
		for _, card := range r.cards {
			if matchCard(card, filter) {
				matched = append(matched, *card)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
		return pageOfCards(matched, page), int64(len(matched)), nil
	}

	p := &predicate{}
	if filter.Holder != nil {
		p.add("holder ILIKE '%' || ? || '%'", *filter.Holder)
	}
	if filter.Active != nil {
		p.add("active = ?", *filter.Active)
	}
	if filter.UserID != nil {
		p.add("user_id = ?", *filter.UserID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payment_cards"+p.where(), p.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM payment_cards%s ORDER BY id LIMIT %d OFFSET %d",
		cardColumns, p.where(), page.Size, page.Offset())
	rows, err := r.db.QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var cards []models.PaymentCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, *card)
	}
	return cards, total, rows.Err()
}

func matchCard(card *models.PaymentCard, filter models.CardFilter) bool {
	if filter.Holder != nil && !strings.Contains(strings.ToLower(card.Holder), strings.ToLower(*filter.Holder)) {
		return false
	}
	if filter.Active != nil && card.Active != *filter.Active {
		return false
	}
	if filter.UserID != nil && card.UserID != *filter.UserID {
		return false
	}
	return true
}

func pageOfCards(cards []models.PaymentCard, page models.PageRequest) []models.PaymentCard {
	start := page.Offset()
	if start >= len(cards) {
		return nil
	}
	end := start + page.Size
	if end > len(cards) {
		end = len(cards)
	}
	return cards[start:end]
}

func scanCard(row rowScanner) (*models.PaymentCard, error) {
	var card models.PaymentCard
	var expiration time.Time
	err := row.Scan(&card.ID, &card.UserID, &card.Number, &card.Holder,
		&expiration, &card.Active, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	card.ExpirationDate = models.DateOf(expiration)
	return &card, nil
}
