// Package account manages user records, credential checks and password resets.
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"observe/internal/domain"
	"observe/internal/gateway"
	"observe/internal/platform/telemetry"
)

// Config controls the service.
type Config struct {
	LegacyIdentity string
	ResetLinkBase  string
	ResetTokenTTL  time.Duration // zero disables expiry
}

// Service implements user management on top of a UserStore.
type Service struct {
	users   gateway.UserStore
	authz   gateway.Authorizer
	mailer  gateway.Mailer
	metrics *telemetry.GatewayMetrics
	cfg     Config
	now     func() time.Time
	random  io.Reader
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records reset and mail outcomes on m.
func WithMetrics(m *telemetry.GatewayMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom replaces the token entropy source.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// NewService creates a Service.
func NewService(users gateway.UserStore, authz gateway.Authorizer, mailer gateway.Mailer, cfg Config, opts ...Option) *Service {
	s := &Service{
		users:  users,
		authz:  authz,
		mailer: mailer,
		cfg:    cfg,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Caller identifies who is acting and from where.
type Caller struct {
	Principal  domain.Principal
	RemoteAddr string
}

func (c Caller) request(target, permission string) domain.AccessRequest {
	return domain.AccessRequest{RemoteAddr: c.RemoteAddr, TargetLogin: target, NewPermission: permission}
}

// Authenticate implements gateway.CredentialVerifier. Unknown logins and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, login, password string) (domain.Principal, error) {
	u, err := s.users.GetUser(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, domain.ErrInvalidCredentials
		}
		return domain.Principal{}, fmt.Errorf("loading credentials: %w", err)
	}
	if !VerifyDigest(password, u.Salt, u.PasswordDigest) {
		return domain.Principal{}, domain.ErrInvalidCredentials
	}
	return domain.Principal{ID: u.Login, Roles: []domain.Role{u.Role()}}, nil
}

// List returns all users ordered by login.
func (s *Service) List(ctx context.Context, c Caller) ([]domain.User, error) {
	if err := s.authz.Authorize(ctx, c.Principal, domain.ActionUserList, c.request("", "")); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx)
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, c Caller, login string) (domain.User, error) {
	if err := s.authz.Authorize(ctx, c.Principal, domain.ActionUserRead, c.request(login, "")); err != nil {
		return domain.User{}, err
	}
	return s.users.GetUser(ctx, login)
}

// SaveOutcome describes what Save changed.
type SaveOutcome int

const (
	Created SaveOutcome = iota
	Updated
	PermissionsUpdated
)

// Message is the confirmation shown to the user.
func (o SaveOutcome) Message() string {
	switch o {
	case Created:
		return "User was added successfully."
	case PermissionsUpdated:
		return "Permissions were updated successfully."
	default:
		return "User was updated successfully."
	}
}

// Save creates or updates the user named in f. The login "all" changes the
// permission of every account except admin and the legacy identity.
func (s *Service) Save(ctx context.Context, c Caller, f UserForm) (SaveOutcome, error) {
	if c.Principal.Disabled() {
		return 0, fmt.Errorf("%w: account %q is disabled", domain.ErrForbidden, c.Principal.ID)
	}
	if f.Password != f.ConfirmPassword {
		return 0, domain.ErrPasswordMismatch
	}
	if f.Login == BulkLogin {
		return s.saveBulk(ctx, c, f)
	}

	existing, err := s.users.GetUser(ctx, f.Login)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.create(ctx, c, f)
	case err != nil:
		return 0, err
	}

	p := c.Principal
	if p.ID != f.Login && !p.HasRole(domain.RoleAdmin) {
		// Anyone but the owner or admin may at most change the permission.
		return s.changePermission(ctx, c, existing, f.Permission)
	}
	return s.update(ctx, c, existing, f)
}

func (s *Service) saveBulk(ctx context.Context, c Caller, f UserForm) (SaveOutcome, error) {
	if err := checkPermission(f.Permission); err != nil {
		return 0, err
	}
	if err := s.authz.Authorize(ctx, c.Principal, domain.ActionUserRoleChange, c.request(BulkLogin, f.Permission)); err != nil {
		return 0, err
	}
	except := []string{domain.ReservedAdmin}
	if s.cfg.LegacyIdentity != "" {
		except = append(except, s.cfg.LegacyIdentity)
	}
	n, err := s.users.SetPermissionAll(ctx, f.Permission, except)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "bulk permission update", "actor", c.Principal.ID, "permission", f.Permission, "users", n)
	return PermissionsUpdated, nil
}

func (s *Service) create(ctx context.Context, c Caller, f UserForm) (SaveOutcome, error) {
	if err := s.authz.Authorize(ctx, c.Principal, domain.ActionUserCreate, c.request(f.Login, f.Permission)); err != nil {
		return 0, err
	}
	if err := f.validate(false, false); err != nil {
		return 0, err
	}
	salt, err := newSalt()
	if err != nil {
		return 0, err
	}
	u := domain.User{
		Login:          f.Login,
		PasswordDigest: Digest(f.Password, salt),
		Salt:           salt,
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		Email:          f.Email,
		Permission:     f.Permission,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "user created", "actor", c.Principal.ID, "login", u.Login, "permission", u.Permission)
	return Created, nil
}

func (s *Service) update(ctx context.Context, c Caller, u domain.User, f UserForm) (SaveOutcome, error) {
	if err := s.authz.Authorize(ctx, c.Principal, domain.ActionProfileUpdate, c.request(u.Login, "")); err != nil {
		return 0, err
	}
	self := c.Principal.ID == u.Login
	if err := f.validate(true, self); err != nil {
		return 0, err
	}
	if f.Permission != "" && f.Permission != u.Permission {
		if err := s.authz.Authorize(ctx, c.Principal, domain.ActionUserRoleChange, c.request(u.Login, f.Permission)); err != nil {
			return 0, err
		}
		u.Permission = f.Permission
	}
	if f.Password != "" {
		salt, err := newSalt()
		if err != nil {
			return 0, err
		}
		u.Salt = salt
		u.PasswordDigest = Digest(f.Password, salt)
	}
	u.FirstName = f.FirstName
	u.LastName = f.LastName
	u.Email = f.Email
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "user updated", "actor", c.Principal.ID, "login", u.Login)
	return Updated, nil
}

func (s *Service) changePermission(ctx context.Context, c Caller, u domain.User, permission string) (SaveOutcome, error) {
	if err := checkPermission(permission); err != nil {
		return 0, err
	}
	if err := s.authz.Authorize(ctx, c.Principal, domain.ActionUserRoleChange, c.request(u.Login, permission)); err != nil {
		return 0, err
	}
	u.Permission = permission
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "permission changed", "actor", c.Principal.ID, "login", u.Login, "permission", permission)
	return Updated, nil
}

// Delete removes a user. The reserved admin account cannot be removed.
func (s *Service) Delete(ctx context.Context, c Caller, login string) error {
	if err := s.authz.Authorize(ctx, c.Principal, domain.ActionUserDelete, c.request(login, "")); err != nil {
		return err
	}
	if login == domain.ReservedAdmin {
		return fmt.Errorf("%w: the admin account cannot be deleted", domain.ErrBadRequest)
	}
	if err := s.users.DeleteUser(ctx, login); err != nil {
		return err
	}
	slog.InfoContext(ctx, "user deleted", "actor", c.Principal.ID, "login", login)
	return nil
}
