package addresses

import (
	"context"
	"time"

	"github.com/lggm33/DUAD/internal/auth"
	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/cacheutil"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/users"
)

// UserDirectory is the slice of the users service needed to confirm the path
// user exists before any address access.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (users.User, error)
}

// Service implements delivery address management with per-user listing cache.
type Service struct {
	repo  Repository
	users UserDirectory
	cache cache.Store
	hooks *observability.Registry
	ttl   time.Duration
}

// NewService wires a Service. ttl bounds the cached listings; non-positive
// values fall back to ten minutes.
func NewService(repo Repository, users UserDirectory, store cache.Store, hooks *observability.Registry, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{repo: repo, users: users, cache: store, hooks: hooks, ttl: ttl}
}

// authorize applies the nested-route access rules. The path user must exist
// for every caller. Admins then pass unconditionally. Customers must own the
// path user id, and when addressID is non-zero the address must exist and
// belong to them.
func (s *Service) authorize(ctx context.Context, p auth.Principal, pathUserID, addressID int64) error {
	if _, err := s.users.GetByID(ctx, pathUserID); err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	if !p.IsCustomer() {
		return apperrors.New(apperrors.ErrCodePermissionDenied, "Permission denied")
	}
	if p.UserID != pathUserID {
		return apperrors.New(apperrors.ErrCodeNotResourceOwner, "Customers can only access their own delivery addresses")
	}
	if addressID != 0 {
		address, err := s.repo.GetByID(ctx, addressID)
		if err != nil {
			return err
		}
		if address.UserID != p.UserID {
			return apperrors.New(apperrors.ErrCodeNotResourceOwner, "This delivery address does not belong to you")
		}
	}
	return nil
}

// List returns the user's delivery addresses, from cache when warm.
func (s *Service) List(ctx context.Context, p auth.Principal, userID int64) ([]Address, error) {
	if err := s.authorize(ctx, p, userID, 0); err != nil {
		return nil, err
	}
	return s.listCached(ctx, userID)
}

// Create files a new address under the path user. The body's user_id is
// required but the path value wins.
func (s *Service) Create(ctx context.Context, p auth.Principal, userID int64, req CreateRequest) (Address, error) {
	if err := s.authorize(ctx, p, userID, 0); err != nil {
		return Address{}, err
	}
	if err := req.validate(); err != nil {
		return Address{}, err
	}

	created, err := s.repo.Create(ctx, Address{
		UserID:     userID,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		return Address{}, err
	}

	s.invalidate(ctx, userID)
	return created, nil
}

// Update merges the provided fields onto the address and returns the full
// listing for the path user, which is what the endpoint responds with.
func (s *Service) Update(ctx context.Context, p auth.Principal, userID, addressID int64, req UpdateRequest) ([]Address, error) {
	if err := s.authorize(ctx, p, userID, addressID); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	address, err := s.repo.GetByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if req.Address != nil {
		address.Address = *req.Address
	}
	if req.City != nil {
		address.City = *req.City
	}
	if req.PostalCode != nil {
		address.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		address.Country = *req.Country
	}

	if _, err := s.repo.Update(ctx, address); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	if address.UserID != userID {
		// Admin edited an address filed under a different user; drop the
		// owner's cached listing too.
		s.invalidate(ctx, address.UserID)
	}
	return s.listCached(ctx, userID)
}

// Delete removes the address and returns the deleted row.
func (s *Service) Delete(ctx context.Context, p auth.Principal, userID, addressID int64) (Address, error) {
	if err := s.authorize(ctx, p, userID, addressID); err != nil {
		return Address{}, err
	}

	deleted, err := s.repo.Delete(ctx, addressID)
	if err != nil {
		return Address{}, err
	}

	s.invalidate(ctx, userID)
	if deleted.UserID != userID {
		s.invalidate(ctx, deleted.UserID)
	}
	return deleted, nil
}

// GetByID loads one address without access checks. Checkout uses it to
// confirm a delivery address belongs to the buyer before invoicing.
func (s *Service) GetByID(ctx context.Context, id int64) (Address, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) listCached(ctx context.Context, userID int64) ([]Address, error) {
	return cacheutil.ReadThrough(ctx, s.cache, s.hooks, cache.UserAddressesKey(userID), s.ttl,
		func(ctx context.Context) ([]Address, error) {
			return s.repo.ListForUser(ctx, userID)
		})
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	cacheutil.Invalidate(ctx, s.cache, s.hooks, []string{cache.UserAddressesKey(userID)})
}
