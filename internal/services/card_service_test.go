package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrRikimaru/UserService/internal/models"

	"github.com/stretchr/testify/require"
)

func cardRequest(number string) *models.PaymentCardRequest {
	expiration := models.DateOf(time.Now().AddDate(1, 0, 0))
	return &models.PaymentCardRequest{
		Number:         number,
		Holder:         "ADA LOVELACE",
		ExpirationDate: &expiration,
	}
}

func TestCreateAndGetCard(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("cardowner@example.com"))
	require.NoError(t, err)

	created, err := cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111111"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, owner.ID, created.UserID)
	require.True(t, created.Active)

	got, err := cards.GetCard(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "4111111111111111", got.Number)

	byNumber, err := cards.GetCardByNumber(ctx, "4111111111111111")
	require.NoError(t, err)
	require.Equal(t, created.ID, byNumber.ID)
}

func TestCreateCard_UnknownUser(t *testing.T) {
	_, cards := newTestServices(t)

	_, err := cards.CreateCard(context.Background(), 9999, cardRequest("4111111111111111"))
	require.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestCreateCard_DuplicateNumber(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	first, err := users.CreateUser(ctx, userRequest("one@example.com"))
	require.NoError(t, err)
	second, err := users.CreateUser(ctx, userRequest("two@example.com"))
	require.NoError(t, err)

	_, err = cards.CreateCard(ctx, first.ID, cardRequest("4111111111111111"))
	require.NoError(t, err)

	// card numbers are unique across users, not per user
	_, err = cards.CreateCard(ctx, second.ID, cardRequest("4111111111111111"))
	require.ErrorIs(t, err, models.ErrDuplicateCardNumber)
}

func TestCreateCard_ExpirationMustBeFuture(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("expiry@example.com"))
	require.NoError(t, err)

	req := cardRequest("4111111111111111")
	today := models.Today()
	req.ExpirationDate = &today
	_, err = cards.CreateCard(ctx, owner.ID, req)
	require.ErrorIs(t, err, models.ErrInvalidExpirationDate)

	yesterday := models.DateOf(time.Now().AddDate(0, 0, -1))
	req.ExpirationDate = &yesterday
	_, err = cards.CreateCard(ctx, owner.ID, req)
	require.ErrorIs(t, err, models.ErrInvalidExpirationDate)

	req.ExpirationDate = nil
	_, err = cards.CreateCard(ctx, owner.ID, req)
	require.ErrorIs(t, err, models.ErrInvalidExpirationDate)

	tomorrow := models.DateOf(time.Now().AddDate(0, 0, 1))
	req.ExpirationDate = &tomorrow
	_, err = cards.CreateCard(ctx, owner.ID, req)
	require.NoError(t, err)
}

func TestCardLimit(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("limit@example.com"))
	require.NoError(t, err)

	for i := 0; i < models.MaxCardsPerUser; i++ {
		_, err := cards.CreateCard(ctx, owner.ID, cardRequest(fmt.Sprintf("411111111111110%d", i)))
		require.NoError(t, err)
	}

	_, err = cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111999"))
	require.ErrorIs(t, err, models.ErrCardLimitExceeded)

	// an inactive card still counts toward the limit
	list, err := cards.CardsOfUser(ctx, owner.ID)
	require.NoError(t, err)
	_, err = cards.DeactivateCard(ctx, list[0].ID)
	require.NoError(t, err)
	_, err = cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111999"))
	require.ErrorIs(t, err, models.ErrCardLimitExceeded)

	// deleting one frees a slot
	require.NoError(t, cards.DeleteCard(ctx, list[1].ID))
	_, err = cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111999"))
	require.NoError(t, err)
}

func TestCardLimit_Concurrent(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("race@example.com"))
	require.NoError(t, err)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cards.CreateCard(ctx, owner.ID,
				cardRequest(fmt.Sprintf("40000000000000%02d", i)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, models.ErrCardLimitExceeded)
		}
	}
	require.Equal(t, models.MaxCardsPerUser, succeeded)

	list, err := cards.CardsOfUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, models.MaxCardsPerUser)
}

func TestGetCardForUser(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("mine@example.com"))
	require.NoError(t, err)
	other, err := users.CreateUser(ctx, userRequest("other@example.com"))
	require.NoError(t, err)

	card, err := cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111111"))
	require.NoError(t, err)

	got, err := cards.GetCardForUser(ctx, owner.ID, card.ID)
	require.NoError(t, err)
	require.Equal(t, card.ID, got.ID)

	// the card exists but belongs to someone else
	_, err = cards.GetCardForUser(ctx, other.ID, card.ID)
	require.ErrorIs(t, err, models.ErrPaymentCardNotFound)
}

func TestUpdateCard(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("update@example.com"))
	require.NoError(t, err)
	card, err := cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111111"))
	require.NoError(t, err)
	_, err = cards.CreateCard(ctx, owner.ID, cardRequest("4222222222222222"))
	require.NoError(t, err)

	t.Run("changes fields", func(t *testing.T) {
		req := cardRequest("4111111111111111")
		req.Holder = "A. BYRON"
		updated, err := cards.UpdateCard(ctx, card.ID, req)
		require.NoError(t, err)
		require.Equal(t, "A. BYRON", updated.Holder)
	})

	t.Run("rejects taken number", func(t *testing.T) {
		_, err := cards.UpdateCard(ctx, card.ID, cardRequest("4222222222222222"))
		require.ErrorIs(t, err, models.ErrDuplicateCardNumber)
	})

	t.Run("rejects past expiration", func(t *testing.T) {
		req := cardRequest("4111111111111111")
		past := models.DateOf(time.Now().AddDate(-1, 0, 0))
		req.ExpirationDate = &past
		_, err := cards.UpdateCard(ctx, card.ID, req)
		require.ErrorIs(t, err, models.ErrInvalidExpirationDate)
	})

	t.Run("unknown card", func(t *testing.T) {
		_, err := cards.UpdateCard(ctx, 9999, cardRequest("4333333333333333"))
		require.ErrorIs(t, err, models.ErrPaymentCardNotFound)
	})
}

func TestUpdateCard_PreservesActiveFlag(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("flag@example.com"))
	require.NoError(t, err)
	card, err := cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111111"))
	require.NoError(t, err)
	require.True(t, card.Active)

	// an update payload carrying active=false must not deactivate
	req := cardRequest("4111111111111111")
	inactive := false
	req.Active = &inactive
	updated, err := cards.UpdateCard(ctx, card.ID, req)
	require.NoError(t, err)
	require.True(t, updated.Active)

	got, err := cards.GetCard(ctx, card.ID)
	require.NoError(t, err)
	require.True(t, got.Active)

	// nor can an update reactivate a deactivated card
	_, err = cards.DeactivateCard(ctx, card.ID)
	require.NoError(t, err)
	active := true
	req.Active = &active
	updated, err = cards.UpdateCard(ctx, card.ID, req)
	require.NoError(t, err)
	require.False(t, updated.Active)
}

func TestCardMutationsEvictOwnerViews(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	owner, err := users.CreateUser(ctx, userRequest("evict@example.com"))
	require.NoError(t, err)
	card, err := cards.CreateCard(ctx, owner.ID, cardRequest("4111111111111111"))
	require.NoError(t, err)

	// warm the card-bearing views
	_, err = cards.CardsOfUser(ctx, owner.ID)
	require.NoError(t, err)
	_, err = users.GetUserWithCards(ctx, owner.ID)
	require.NoError(t, err)

	_, err = cards.DeactivateCard(ctx, card.ID)
	require.NoError(t, err)

	list, err := cards.CardsOfUser(ctx, owner.ID)
	require.NoError(t, err)
	require.False(t, list[0].Active)
	withCards, err := users.GetUserWithCards(ctx, owner.ID)
	require.NoError(t, err)
	require.False(t, withCards.PaymentCards[0].Active)

	active, err := cards.ActiveCardsOfUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	require.NoError(t, cards.DeleteCard(ctx, card.ID))
	list, err = cards.CardsOfUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListCards(t *testing.T) {
	users, cards := newTestServices(t)
	ctx := context.Background()

	first, err := users.CreateUser(ctx, userRequest("holder1@example.com"))
	require.NoError(t, err)
	second, err := users.CreateUser(ctx, userRequest("holder2@example.com"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := cards.CreateCard(ctx, first.ID, cardRequest(fmt.Sprintf("411111111111110%d", i)))
		require.NoError(t, err)
	}
	req := cardRequest("4222222222222222")
	req.Holder = "GRACE HOPPER"
	inactive := false
	req.Active = &inactive
	_, err = cards.CreateCard(ctx, second.ID, req)
	require.NoError(t, err)

	t.Run("by user", func(t *testing.T) {
		page, info, err := cards.ListCards(ctx, models.CardFilter{UserID: &first.ID}, models.PageRequest{Size: 10})
		require.NoError(t, err)
		require.Len(t, page, 3)
		require.Equal(t, int64(3), info.TotalElements)
	})

	t.Run("by holder substring", func(t *testing.T) {
		holder := "hopper"
		page, _, err := cards.ListCards(ctx, models.CardFilter{Holder: &holder}, models.PageRequest{Size: 10})
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, "GRACE HOPPER", page[0].Holder)
	})

	t.Run("active only", func(t *testing.T) {
		_, info, err := cards.ListActiveCards(ctx, models.PageRequest{Size: 10})
		require.NoError(t, err)
		require.Equal(t, int64(3), info.TotalElements)
	})
}
