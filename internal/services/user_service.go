package services

import (
	"context"
	"errors"

	"github.com/MrRikimaru/UserService/internal/cache"
	"github.com/MrRikimaru/UserService/internal/models"
	"github.com/MrRikimaru/UserService/internal/repository"

	"go.uber.org/zap"
)

// UserService implements the user operations on top of the repository with
// read-through caching of the single-entity views. Listing and search results
// are never cached; they go straight to the store.
type UserService struct {
	Repo    *repository.Repository
	Cache   *cache.Manager
	Evictor *cache.Invalidator
	Logger  *zap.Logger
}

func NewUserService(repo *repository.Repository, cacheManager *cache.Manager, evictor *cache.Invalidator, logger *zap.Logger) *UserService {
	return &UserService{
		Repo:    repo,
		Cache:   cacheManager,
		Evictor: evictor,
		Logger:  logger,
	}
}

// CreateUser validates and persists a new user. Creation touches no cached
// view: the fresh entity cannot be cached under its id yet.
func (s *UserService) CreateUser(ctx context.Context, req *models.UserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.Repo.ExistsUserEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.ErrDuplicateEmail
	}

	user := models.NewUser(req)
	s.Logger.Info("Creating user", zap.String("email", user.Email))
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		s.Logger.Error("Failed to save user to database", zap.Error(err))
		return nil, err
	}
	return user, nil
}

// GetUser returns a single user, reading through the users view cache.
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var cached models.User
	if err := s.Cache.GetJSON(ctx, cache.ViewUser, id, &cached); err == nil {
		return &cached, nil
	}

	user, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.PutJSON(ctx, cache.ViewUser, id, user); err != nil {
		s.Logger.Warn("Failed to cache user", zap.Int64("userId", id), zap.Error(err))
	}
	return user, nil
}

// GetUserWithCards returns the user composed with all of its cards, reading
// through the usersWithCards view cache.
func (s *UserService) GetUserWithCards(ctx context.Context, id int64) (*models.UserWithCards, error) {
	var cached models.UserWithCards
	if err := s.Cache.GetJSON(ctx, cache.ViewUserWithCards, id, &cached); err == nil {
		return &cached, nil
	}

	user, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	cards, err := s.Repo.CardsOfUser(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &models.UserWithCards{User: *user, PaymentCards: cards}
	if err := s.Cache.PutJSON(ctx, cache.ViewUserWithCards, id, result); err != nil {
		s.Logger.Warn("Failed to cache user with cards", zap.Int64("userId", id), zap.Error(err))
	}
	return result, nil
}

// GetUserByEmail looks a user up by its unique email. Email lookups bypass
// the cache, which is keyed by id only.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.Repo.GetUserByEmail(ctx, email)
}

// ListUsers returns a page of users matching the filter.
func (s *UserService) ListUsers(ctx context.Context, filter models.UserFilter, page models.PageRequest) ([]models.User, *models.PageInfo, error) {
	page = page.Normalize()
	users, total, err := s.Repo.ListUsers(ctx, filter, page)
	if err != nil {
		return nil, nil, err
	}
	info := models.NewPageInfo(page, total)
	return users, &info, nil
}

// ListActiveUsers returns a page of active users.
func (s *UserService) ListActiveUsers(ctx context.Context, page models.PageRequest) ([]models.User, *models.PageInfo, error) {
	active := true
	return s.ListUsers(ctx, models.UserFilter{Active: &active}, page)
}

// SearchUsers matches users by name and surname substrings,
// case-insensitively. Nil criteria match everything.
func (s *UserService) SearchUsers(ctx context.Context, name, surname *string, page models.PageRequest) ([]models.User, *models.PageInfo, error) {
	return s.ListUsers(ctx, models.UserFilter{Name: name, Surname: surname}, page)
}

// ListActiveUsersBornBefore returns active users born strictly before the
// given date.
func (s *UserService) ListActiveUsersBornBefore(ctx context.Context, before models.Date, page models.PageRequest) ([]models.User, *models.PageInfo, error) {
	active := true
	return s.ListUsers(ctx, models.UserFilter{Active: &active, BornBefore: &before}, page)
}

// UpdateUser replaces the mutable fields of an existing user and evicts all
// of its cached views.
func (s *UserService) UpdateUser(ctx context.Context, id int64, req *models.UserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != user.Email {
		taken, err := s.Repo.ExistsUserEmail(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, models.ErrDuplicateEmail
		}
	}

	// The active flag is owned by activate/deactivate; update never touches it.
	user.Name = req.Name
	user.Surname = req.Surname
	user.BirthDate = req.BirthDate
	user.Email = req.Email

	s.Logger.Info("Updating user", zap.Int64("userId", id))
	if err := s.Repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.Evictor.EvictUserViews(ctx, id)
	return user, nil
}

// ActivateUser marks the user active. Activating an already active user is a
// no-op that still succeeds.
func (s *UserService) ActivateUser(ctx context.Context, id int64) (*models.User, error) {
	return s.setActive(ctx, id, true)
}

// DeactivateUser marks the user inactive without touching its cards.
func (s *UserService) DeactivateUser(ctx context.Context, id int64) (*models.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *UserService) setActive(ctx context.Context, id int64, active bool) (*models.User, error) {
	if err := s.Repo.SetUserActive(ctx, id, active); err != nil {
		return nil, err
	}
	s.Evictor.EvictUserViews(ctx, id)
	return s.Repo.GetUser(ctx, id)
}

// DeleteUser removes the user and, through ownership, all of its cards, then
// evicts every cached view of the user.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	s.Logger.Info("Deleting user", zap.Int64("userId", id))
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return err
		}
		s.Logger.Error("Failed to delete user", zap.Int64("userId", id), zap.Error(err))
		return err
	}
	s.Evictor.EvictUserViews(ctx, id)
	return nil
}
