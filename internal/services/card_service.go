package services

import (
	"context"

	"github.com/MrRikimaru/UserService/internal/cache"
	"github.com/MrRikimaru/UserService/internal/models"
	"github.com/MrRikimaru/UserService/internal/repository"

	"go.uber.org/zap"
)

// CardService implements the payment card operations. The per-user card
// listing reads through the userCards view cache; every card mutation evicts
// the owner's card-bearing views.
type CardService struct {
	Repo    *repository.Repository
	Cache   *cache.Manager
	Evictor *cache.Invalidator
	Logger  *zap.Logger
}

func NewCardService(repo *repository.Repository, cacheManager *cache.Manager, evictor *cache.Invalidator, logger *zap.Logger) *CardService {
	return &CardService{
		Repo:    repo,
		Cache:   cacheManager,
		Evictor: evictor,
		Logger:  logger,
	}
}

// CreateCard adds a card to a user. The repository performs the exists,
// count and insert steps as one atomic unit, so the per-user limit holds
// under concurrent creates.
func (s *CardService) CreateCard(ctx context.Context, userID int64, req *models.PaymentCardRequest) (*models.PaymentCard, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	card := models.NewPaymentCard(req, userID)
	s.Logger.Info("Creating payment card", zap.Int64("userId", userID))
	if err := s.Repo.CreateCard(ctx, card); err != nil {
		s.Logger.Error("Failed to save payment card", zap.Int64("userId", userID), zap.Error(err))
		return nil, err
	}
	s.Evictor.EvictCardOwnerViews(ctx, userID)
	return card, nil
}

// GetCard returns a single card by id. Individual cards are not cached; only
// the per-user listing view is.
func (s *CardService) GetCard(ctx context.Context, id int64) (*models.PaymentCard, error) {
	return s.Repo.GetCard(ctx, id)
}

// GetCardByNumber looks a card up by its unique number.
func (s *CardService) GetCardByNumber(ctx context.Context, number string) (*models.PaymentCard, error) {
	return s.Repo.GetCardByNumber(ctx, number)
}

// GetCardForUser returns the card only if it belongs to the given user.
func (s *CardService) GetCardForUser(ctx context.Context, userID, cardID int64) (*models.PaymentCard, error) {
	return s.Repo.GetCardForUser(ctx, userID, cardID)
}

// CardsOfUser returns every card of a user, reading through the userCards
// view cache. An unknown user is an error even when it would cache an empty
// list.
func (s *CardService) CardsOfUser(ctx context.Context, userID int64) ([]models.PaymentCard, error) {
	var cached []models.PaymentCard
	if err := s.Cache.GetJSON(ctx, cache.ViewUserCards, userID, &cached); err == nil {
		return cached, nil
	}

	if _, err := s.Repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	cards, err := s.Repo.CardsOfUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.PutJSON(ctx, cache.ViewUserCards, userID, cards); err != nil {
		s.Logger.Warn("Failed to cache user cards", zap.Int64("userId", userID), zap.Error(err))
	}
	return cards, nil
}

// ListCards returns a page of cards matching the filter.
func (s *CardService) ListCards(ctx context.Context, filter models.CardFilter, page models.PageRequest) ([]models.PaymentCard, *models.PageInfo, error) {
	page = page.Normalize()
	cards, total, err := s.Repo.ListCards(ctx, filter, page)
	if err != nil {
		return nil, nil, err
	}
	info := models.NewPageInfo(page, total)
	return cards, &info, nil
}

// ListActiveCards returns a page of active cards across all users.
func (s *CardService) ListActiveCards(ctx context.Context, page models.PageRequest) ([]models.PaymentCard, *models.PageInfo, error) {
	active := true
	return s.ListCards(ctx, models.CardFilter{Active: &active}, page)
}

// ActiveCardsOfUser returns only the active cards of a user. It filters the
// cached full listing instead of querying separately, so both reads share one
// view entry.
func (s *CardService) ActiveCardsOfUser(ctx context.Context, userID int64) ([]models.PaymentCard, error) {
	cards, err := s.CardsOfUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]models.PaymentCard, 0, len(cards))
	for _, card := range cards {
		if card.Active {
			active = append(active, card)
		}
	}
	return active, nil
}

// UpdateCard replaces the mutable fields of an existing card and evicts the
// owner's card-bearing views.
func (s *CardService) UpdateCard(ctx context.Context, id int64, req *models.PaymentCardRequest) (*models.PaymentCard, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	card, err := s.Repo.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Number != card.Number {
		taken, err := s.Repo.ExistsCardNumber(ctx, req.Number)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.ErrDuplicateCardNumber
		}
	}

	// The active flag is owned by activate/deactivate; update never touches it.
	card.Number = req.Number
	card.Holder = req.Holder
	card.ExpirationDate = *req.ExpirationDate

	s.Logger.Info("Updating payment card", zap.Int64("cardId", id))
	if err := s.Repo.UpdateCard(ctx, card); err != nil {
		return nil, err
	}
	s.Evictor.EvictCardOwnerViews(ctx, card.UserID)
	return card, nil
}

// ActivateCard marks the card active.
func (s *CardService) ActivateCard(ctx context.Context, id int64) (*models.PaymentCard, error) {
	return s.setActive(ctx, id, true)
}

// DeactivateCard marks the card inactive. A deactivated card still counts
// toward the owner's card limit.
func (s *CardService) DeactivateCard(ctx context.Context, id int64) (*models.PaymentCard, error) {
	return s.setActive(ctx, id, false)
}

func (s *CardService) setActive(ctx context.Context, id int64, active bool) (*models.PaymentCard, error) {
	card, err := s.Repo.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetCardActive(ctx, id, active); err != nil {
		return nil, err
	}
	card.Active = active
	s.Evictor.EvictCardOwnerViews(ctx, card.UserID)
	return card, nil
}

// DeleteCard removes the card and evicts the owner's card-bearing views. The
// owner id is read before the delete; afterwards it is gone.
func (s *CardService) DeleteCard(ctx context.Context, id int64) error {
	card, err := s.Repo.GetCard(ctx, id)
	if err != nil {
		return err
	}
	s.Logger.Info("Deleting payment card", zap.Int64("cardId", id), zap.Int64("userId", card.UserID))
	if err := s.Repo.DeleteCard(ctx, id); err != nil {
		return err
	}
	s.Evictor.EvictCardOwnerViews(ctx, card.UserID)
	return nil
}
