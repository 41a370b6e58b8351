package users

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lggm33/DUAD/internal/auth"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/revocation"
	"github.com/lggm33/DUAD/internal/token"
)

// Service implements account management on top of a Repository plus the
// token engine and revocation store.
type Service struct {
	repo        Repository
	engine      token.Engine
	revocations revocation.Store
	hooks       *observability.Registry
}

// NewService wires a Service. hooks may be nil when no observers are needed.
func NewService(repo Repository, engine token.Engine, revocations revocation.Store, hooks *observability.Registry) *Service {
	return &Service{repo: repo, engine: engine, revocations: revocations, hooks: hooks}
}

// Register creates an account. The requested role is honored only for admin
// callers; everyone else becomes a customer regardless of input.
func (s *Service) Register(ctx context.Context, req RegisterRequest, adminCaller bool) (User, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := req.validate(); err != nil {
		return User{}, err
	}

	role := auth.RoleCustomer
	if adminCaller && req.Role != "" {
		if !auth.ValidRole(req.Role) {
			return User{}, apperrors.Newf(apperrors.ErrCodeInvalidField, "Invalid role: %s", req.Role)
		}
		role = req.Role
	}

	// Early availability check for a clean error. The unique constraint on
	// users.email still closes the race window inside Create.
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return User{}, apperrors.New(apperrors.ErrCodeEmailInUse, "Email already in use")
	} else if !apperrors.IsCode(err, apperrors.ErrCodeUserNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not hash password", err)
	}

	return s.repo.Create(ctx, User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		Name:         req.Name,
		Phone:        req.Phone,
	})
}

// Login checks the credentials and issues an access/refresh pair. Lookup
// misses and password mismatches collapse into one error so the response
// never reveals which part failed.
func (s *Service) Login(ctx context.Context, email, password string) (token.Pair, User, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeUserNotFound) {
			return token.Pair{}, User{}, apperrors.New(apperrors.ErrCodeInvalidCredentials, "Invalid credentials")
		}
		return token.Pair{}, User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return token.Pair{}, User{}, apperrors.New(apperrors.ErrCodeInvalidCredentials, "Invalid credentials")
	}

	pair, err := s.engine.IssuePair(user.ID, user.Role)
	if err != nil {
		return token.Pair{}, User{}, apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not issue tokens", err)
	}

	s.emitIssued(ctx, user, token.TypeAccess)
	s.emitIssued(ctx, user, token.TypeRefresh)
	return pair, user, nil
}

// Refresh mints a new access token for the holder of a valid refresh token.
// The role claim comes from the current database row, not the old token, so
// promotions and demotions take effect on the next refresh.
func (s *Service) Refresh(ctx context.Context, principal auth.Principal) (string, error) {
	user, err := s.repo.GetByID(ctx, principal.UserID)
	if err != nil {
		return "", err
	}

	access, err := s.engine.Issue(user.ID, user.Role, token.TypeAccess)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternalError, "Could not issue tokens", err)
	}

	s.emitIssued(ctx, user, token.TypeAccess)
	return access, nil
}

// RevokeToken withdraws the presented token until its natural expiry. Both
// logout endpoints land here; they differ only in which token they present.
func (s *Service) RevokeToken(ctx context.Context, principal auth.Principal, typ token.Type) error {
	if err := s.revocations.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeServiceUnavailable, "Could not revoke token", err)
	}

	if s.hooks != nil {
		s.hooks.EmitTokenRevoked(ctx, observability.TokenRevokedEvent{
			Timestamp: time.Now().UTC(),
			UserID:    principal.UserID,
			TokenID:   principal.TokenID,
			TokenType: string(typ),
		})
	}
	return nil
}

// GetByID fetches a single account.
func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// Update merges the provided fields onto the stored row.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (User, error) {
	if err := req.validate(); err != nil {
		return User{}, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	return s.repo.Update(ctx, user)
}

// Delete removes the account and returns the deleted row.
func (s *Service) Delete(ctx context.Context, id int64) (User, error) {
	return s.repo.Delete(ctx, id)
}

// MakeAdmin promotes a customer to admin.
func (s *Service) MakeAdmin(ctx context.Context, id int64) (User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.Role == auth.RoleAdmin {
		return User{}, apperrors.New(apperrors.ErrCodeValidationFailed, "User is already an admin. Please use a different user.")
	}

	user.Role = auth.RoleAdmin
	return s.repo.Update(ctx, user)
}

func (s *Service) emitIssued(ctx context.Context, user User, typ token.Type) {
	if s.hooks == nil {
		return
	}
	s.hooks.EmitTokenIssued(ctx, observability.TokenIssuedEvent{
		Timestamp: time.Now().UTC(),
		UserID:    user.ID,
		Role:      user.Role,
		Algorithm: s.engine.Algorithm(),
		TokenType: string(typ),
	})
}
