package users

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/lggm33/DUAD/internal/auth"
	apperrors "github.com/lggm33/DUAD/internal/errors"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/revocation"
	"github.com/lggm33/DUAD/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeRepository struct {
	byID   map[int64]User
	nextID int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{byID: make(map[int64]User), nextID: 1}
}

func (f *fakeRepository) Create(_ context.Context, u User) (User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return User{}, apperrors.New(apperrors.ErrCodeEmailInUse, "Email already in use")
		}
	}
	u.ID = f.nextID
	f.nextID++
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeRepository) GetByID(_ context.Context, id int64) (User, error) {
	u, ok := f.byID[id]
	if !ok {
		return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
	}
	return u, nil
}

func (f *fakeRepository) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
}

func (f *fakeRepository) Update(_ context.Context, u User) (User, error) {
	if _, ok := f.byID[u.ID]; !ok {
		return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
	}
	u.UpdatedAt = time.Now().UTC()
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeRepository) Delete(_ context.Context, id int64) (User, error) {
	u, ok := f.byID[id]
	if !ok {
		return User{}, apperrors.New(apperrors.ErrCodeUserNotFound, "User not found")
	}
	delete(f.byID, id)
	return u, nil
}

type countingAuthHook struct {
	issued  []observability.TokenIssuedEvent
	revoked []observability.TokenRevokedEvent
}

func (h *countingAuthHook) Name() string { return "counting" }

func (h *countingAuthHook) OnTokenIssued(_ context.Context, e observability.TokenIssuedEvent) {
	h.issued = append(h.issued, e)
}

func (h *countingAuthHook) OnTokenRevoked(_ context.Context, e observability.TokenRevokedEvent) {
	h.revoked = append(h.revoked, e)
}

type serviceFixture struct {
	service *Service
	repo    *fakeRepository
	engine  token.Engine
	store   *revocation.MemoryStore
	hook    *countingAuthHook
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	engine, err := token.NewHS256(testSecret, 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewHS256: %v", err)
	}
	store := revocation.NewMemoryStore()
	t.Cleanup(store.Stop)

	hook := &countingAuthHook{}
	registry := observability.NewRegistry(zerolog.Nop())
	registry.RegisterAuthHook(hook)

	repo := newFakeRepository()
	return &serviceFixture{
		service: NewService(repo, engine, store, registry),
		repo:    repo,
		engine:  engine,
		store:   store,
		hook:    hook,
	}
}

func registerRequest() RegisterRequest {
	return RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
		Name:     "Alice",
	}
}

func TestRegister(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	req := registerRequest()
	req.Email = "  Alice@Example.COM  "
	user, err := fx.service.Register(ctx, req, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized form", user.Email)
	}
	if user.Role != auth.RoleCustomer {
		t.Errorf("role = %q, want customer", user.Role)
	}
	if !user.IsActive {
		t.Error("new accounts should start active")
	}
	if user.PasswordHash == req.Password {
		t.Error("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_IgnoresRoleFromNonAdmin(t *testing.T) {
	fx := newServiceFixture(t)

	req := registerRequest()
	req.Role = auth.RoleAdmin
	user, err := fx.service.Register(context.Background(), req, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != auth.RoleCustomer {
		t.Errorf("role = %q, non-admin callers must not assign roles", user.Role)
	}
}

func TestRegister_AdminAssignsRole(t *testing.T) {
	fx := newServiceFixture(t)

	req := registerRequest()
	req.Role = auth.RoleAdmin
	user, err := fx.service.Register(context.Background(), req, true)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != auth.RoleAdmin {
		t.Errorf("role = %q, want admin", user.Role)
	}

	bad := registerRequest()
	bad.Email = "bob@example.com"
	bad.Role = "superuser"
	if _, err := fx.service.Register(context.Background(), bad, true); !apperrors.IsCode(err, apperrors.ErrCodeInvalidField) {
		t.Errorf("unknown role: got %v, want invalid_field", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, registerRequest(), false); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	_, err := fx.service.Register(ctx, registerRequest(), false)
	if !apperrors.IsCode(err, apperrors.ErrCodeEmailInUse) {
		t.Fatalf("got %v, want email_in_use", err)
	}
	if apperrors.MessageOf(err) != "Email already in use" {
		t.Errorf("message = %q", apperrors.MessageOf(err))
	}
}

func TestLogin(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	req := registerRequest()
	registered, err := fx.service.Register(ctx, req, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	pair, user, err := fx.service.Login(ctx, "ALICE@example.com", req.Password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("user.ID = %d, want %d", user.ID, registered.ID)
	}

	access, err := fx.engine.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify(access): %v", err)
	}
	refresh, err := fx.engine.Verify(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Verify(refresh): %v", err)
	}
	if access.Type != token.TypeAccess || refresh.Type != token.TypeRefresh {
		t.Errorf("token types = %q/%q", access.Type, refresh.Type)
	}
	if access.Role != auth.RoleCustomer || refresh.Role != auth.RoleCustomer {
		t.Errorf("token roles = %q/%q, want customer", access.Role, refresh.Role)
	}
	if access.ID == refresh.ID {
		t.Error("access and refresh tokens share a jti")
	}
	if id, err := access.UserID(); err != nil || id != registered.ID {
		t.Errorf("access subject = %d (%v), want %d", id, err, registered.ID)
	}

	if len(fx.hook.issued) != 2 {
		t.Fatalf("issued events = %d, want one per token", len(fx.hook.issued))
	}
	types := map[string]bool{}
	for _, e := range fx.hook.issued {
		types[e.TokenType] = true
		if e.UserID != registered.ID || e.Algorithm != "HS256" {
			t.Errorf("unexpected event %+v", e)
		}
	}
	if !types[string(token.TypeAccess)] || !types[string(token.TypeRefresh)] {
		t.Errorf("event token types = %v", types)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	req := registerRequest()
	if _, err := fx.service.Register(ctx, req, false); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", req.Email, "not the password"},
		{"unknown email", "nobody@example.com", req.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := fx.service.Login(ctx, tt.email, tt.password)
			if !apperrors.IsCode(err, apperrors.ErrCodeInvalidCredentials) {
				t.Fatalf("got %v, want invalid_credentials", err)
			}
			if apperrors.MessageOf(err) != "Invalid credentials" {
				t.Errorf("message = %q, must not leak which check failed", apperrors.MessageOf(err))
			}
		})
	}
	if len(fx.hook.issued) != 0 {
		t.Errorf("failed logins must not issue tokens, got %d events", len(fx.hook.issued))
	}
}

func TestRefresh_UsesCurrentRole(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, registerRequest(), false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := fx.service.MakeAdmin(ctx, user.ID); err != nil {
		t.Fatalf("MakeAdmin: %v", err)
	}

	raw, err := fx.service.Refresh(ctx, auth.Principal{UserID: user.ID, Role: auth.RoleCustomer})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := fx.engine.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Type != token.TypeAccess {
		t.Errorf("type = %q, want access", claims.Type)
	}
	if claims.Role != auth.RoleAdmin {
		t.Errorf("role = %q, refresh must pick up the promoted role", claims.Role)
	}
}

func TestRefresh_DeletedUser(t *testing.T) {
	fx := newServiceFixture(t)

	_, err := fx.service.Refresh(context.Background(), auth.Principal{UserID: 42})
	if !apperrors.IsCode(err, apperrors.ErrCodeUserNotFound) {
		t.Fatalf("got %v, want user_not_found", err)
	}
}

func TestRevokeToken(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	principal := auth.Principal{
		UserID:    7,
		Role:      auth.RoleCustomer,
		TokenID:   "jti-refresh-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := fx.service.RevokeToken(ctx, principal, token.TypeRefresh); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	revoked, err := fx.store.IsRevoked(ctx, principal.TokenID)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Error("token not present in revocation store")
	}

	if len(fx.hook.revoked) != 1 {
		t.Fatalf("revoked events = %d, want 1", len(fx.hook.revoked))
	}
	e := fx.hook.revoked[0]
	if e.UserID != principal.UserID || e.TokenID != principal.TokenID || e.TokenType != string(token.TypeRefresh) {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestUpdate_MergesFields(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	req := registerRequest()
	req.Phone = strPtr("555-0100")
	user, err := fx.service.Register(ctx, req, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, err := fx.service.Update(ctx, user.ID, UpdateRequest{Name: strPtr("Alice B")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Alice B" {
		t.Errorf("name = %q", updated.Name)
	}
	if updated.Phone == nil || *updated.Phone != "555-0100" {
		t.Error("phone changed by a name-only update")
	}

	inactive := false
	updated, err = fx.service.Update(ctx, user.ID, UpdateRequest{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.IsActive {
		t.Error("is_active not applied")
	}
}

func TestMakeAdmin(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, registerRequest(), false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	promoted, err := fx.service.MakeAdmin(ctx, user.ID)
	if err != nil {
		t.Fatalf("MakeAdmin: %v", err)
	}
	if promoted.Role != auth.RoleAdmin {
		t.Errorf("role = %q, want admin", promoted.Role)
	}

	_, err = fx.service.MakeAdmin(ctx, user.ID)
	if !apperrors.IsCode(err, apperrors.ErrCodeValidationFailed) {
		t.Fatalf("got %v, want validation_failed", err)
	}
	if apperrors.MessageOf(err) != "User is already an admin. Please use a different user." {
		t.Errorf("message = %q", apperrors.MessageOf(err))
	}
}

func TestDelete_ReturnsDeletedUser(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, registerRequest(), false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	deleted, err := fx.service.Delete(ctx, user.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != user.ID {
		t.Errorf("deleted.ID = %d, want %d", deleted.ID, user.ID)
	}
	if _, err := fx.service.GetByID(ctx, user.ID); !apperrors.IsCode(err, apperrors.ErrCodeUserNotFound) {
		t.Errorf("account still readable after delete: %v", err)
	}
}
