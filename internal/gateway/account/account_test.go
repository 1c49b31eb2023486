package account_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"observe/internal/domain"
	"observe/internal/gateway/account"
	"observe/internal/gateway/adapter/inmem"
	"observe/internal/gateway/policy"
)

const (
	trustedOrigin   = "147.231.1.10"
	untrustedOrigin = "8.8.8.8"
)

type fixture struct {
	svc    *account.Service
	users  *inmem.UserStore
	outbox *inmem.Outbox
	now    time.Time
}

func newFixture(t *testing.T, opts ...account.Option) *fixture {
	t.Helper()
	f := &fixture{
		users: inmem.NewUserStore(
			domain.User{Login: "admin", PasswordDigest: account.Digest("root", ""), Permission: "admin", Email: "admin@example.org"},
			domain.User{Login: "tcsuser", PasswordDigest: account.Digest("tcs", ""), Permission: "user", Email: "tcs@example.org"},
			domain.User{Login: "jdoe", PasswordDigest: account.Digest("secret", "00ff"), Salt: "00ff", FirstName: "Jane", LastName: "Doe", Email: "jane@example.org", Permission: "user"},
			domain.User{Login: "ops", PasswordDigest: account.Digest("ops", ""), Permission: "control", Email: "ops@example.org"},
			domain.User{Login: "ghost", PasswordDigest: account.Digest("boo", ""), Permission: "none", Email: "ghost@example.org"},
		),
		outbox: inmem.NewOutbox(),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	authz := policy.NewEvaluator(inmem.NewAllowList("147.231.%"), "tcsuser", nil)
	opts = append([]account.Option{account.WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = account.NewService(f.users, authz, f.outbox, account.Config{
		LegacyIdentity: "tcsuser",
		ResetLinkBase:  "https://observe.example.org/observe/",
	}, opts...)
	return f
}

func caller(id string, role domain.Role) account.Caller {
	return account.Caller{Principal: domain.Principal{ID: id, Roles: []domain.Role{role}}, RemoteAddr: untrustedOrigin}
}

func (f *fixture) lastToken(t *testing.T) string {
	t.Helper()
	sent := f.outbox.Sent()
	require.NotEmpty(t, sent)
	body := sent[len(sent)-1].Body
	i := strings.LastIndex(body, "/")
	require.GreaterOrEqual(t, i, 0)
	return body[i+1:]
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "5ebe2294ecd0e0f08eab7690d2a6ee69", account.Digest("secret", ""))
	assert.Equal(t, "22ed00149b16d7dd5d5e3898158026ff", account.Digest("secret", "00ff"))
	assert.True(t, account.VerifyDigest("secret", "00ff", "22ed00149b16d7dd5d5e3898158026ff"))
	assert.False(t, account.VerifyDigest("Secret", "00ff", "22ed00149b16d7dd5d5e3898158026ff"))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Authenticate(ctx, "jdoe", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", p.ID)
	assert.Equal(t, []domain.Role{domain.RoleUser}, p.Roles)

	p, err = f.svc.Authenticate(ctx, "admin", "root")
	require.NoError(t, err)
	assert.True(t, p.HasRole(domain.RoleAdmin))

	_, err = f.svc.Authenticate(ctx, "jdoe", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.svc.List(ctx, caller("jdoe", domain.RoleUser))
	require.NoError(t, err)
	assert.Len(t, users, 5)
	assert.Equal(t, "admin", users[0].Login)

	_, err = f.svc.List(ctx, caller("ghost", domain.RoleNone))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	u, err := f.svc.Get(ctx, caller("jdoe", domain.RoleUser), "ops")
	require.NoError(t, err)
	assert.Equal(t, "control", u.Permission)

	_, err = f.svc.Get(ctx, caller("jdoe", domain.RoleUser), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := account.UserForm{
		Login: "new", Password: "pw", ConfirmPassword: "pw",
		FirstName: "N", LastName: "U", Email: "new@example.org", Permission: "user",
	}

	_, err := f.svc.Save(ctx, caller("jdoe", domain.RoleUser), form)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Save(ctx, caller("ops", domain.RoleControl), form)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := f.svc.Save(ctx, caller("admin", domain.RoleAdmin), form)
	require.NoError(t, err)
	assert.Equal(t, account.Created, out)
	assert.Equal(t, "User was added successfully.", out.Message())

	u, err := f.users.GetUser(ctx, "new")
	require.NoError(t, err)
	assert.NotEmpty(t, u.Salt)
	assert.NotEqual(t, "pw", u.PasswordDigest)
	p, err := f.svc.Authenticate(ctx, "new", "pw")
	require.NoError(t, err)
	assert.Equal(t, "new", p.ID)
}

func TestSaveCreateValidation(t *testing.T) {
	f := newFixture(t)
	admin := caller("admin", domain.RoleAdmin)

	tests := []struct {
		name  string
		form  account.UserForm
		field string
	}{
		{"missing password", account.UserForm{Login: "n", FirstName: "a", LastName: "b", Email: "e", Permission: "user"}, "password"},
		{"missing email", account.UserForm{Login: "n", Password: "p", ConfirmPassword: "p", FirstName: "a", LastName: "b", Permission: "user"}, "email"},
		{"missing permission", account.UserForm{Login: "n", Password: "p", ConfirmPassword: "p", FirstName: "a", LastName: "b", Email: "e"}, "permission"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Save(context.Background(), admin, tt.form)
			var verr *account.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, domain.ErrBadRequest)
		})
	}

	_, err := f.svc.Save(context.Background(), admin, account.UserForm{
		Login: "n", Password: "p", ConfirmPassword: "p", FirstName: "a", LastName: "b", Email: "e", Permission: "root",
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestSavePasswordMismatch(t *testing.T) {
	f := newFixture(t)
	before, _ := f.users.GetUser(context.Background(), "jdoe")

	_, err := f.svc.Save(context.Background(), caller("jdoe", domain.RoleUser), account.UserForm{
		Login: "jdoe", Password: "a", ConfirmPassword: "b", FirstName: "J", LastName: "D", Email: "j@x",
	})
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	after, _ := f.users.GetUser(context.Background(), "jdoe")
	assert.Equal(t, before, after)
}

func TestSaveDisabledCallerForbiddenFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ghost := caller("ghost", domain.RoleNone)
	before, _ := f.users.ListUsers(ctx)

	tests := []struct {
		name string
		form account.UserForm
	}{
		{"mismatched passwords", account.UserForm{Login: "ghost", Password: "a", ConfirmPassword: "b"}},
		{"bulk permission change", account.UserForm{Login: "all", Permission: "none"}},
		{"bulk with unknown permission", account.UserForm{Login: "all", Permission: "bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Save(ctx, ghost, tt.form)
			assert.ErrorIs(t, err, domain.ErrForbidden)
			assert.NotErrorIs(t, err, domain.ErrBadRequest)
		})
	}

	after, _ := f.users.ListUsers(ctx)
	assert.Equal(t, before, after)
}

func TestSaveUnknownPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := caller("admin", domain.RoleAdmin)

	tests := []struct {
		name string
		form account.UserForm
	}{
		{"bulk", account.UserForm{Login: "all", Permission: "superuser"}},
		{"role change", account.UserForm{Login: "jdoe", FirstName: "J", LastName: "D", Email: "j@x", Permission: "superuser"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Save(ctx, admin, tt.form)
			require.ErrorIs(t, err, domain.ErrBadRequest)
			assert.Contains(t, err.Error(), `unknown permission "superuser"`)
			var verr *account.ValidationError
			assert.False(t, errors.As(err, &verr), "not reported as a missing field")
		})
	}

	_, err := f.svc.Save(ctx, admin, account.UserForm{Login: "all"})
	var verr *account.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "permission", verr.Field)
}

func TestSaveSelfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	self := caller("jdoe", domain.RoleUser)

	out, err := f.svc.Save(ctx, self, account.UserForm{
		Login: "jdoe", FirstName: "Janet", LastName: "Doe", Email: "janet@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, account.Updated, out)

	u, _ := f.users.GetUser(ctx, "jdoe")
	assert.Equal(t, "Janet", u.FirstName)
	assert.Equal(t, "user", u.Permission)
	_, err = f.svc.Authenticate(ctx, "jdoe", "secret")
	require.NoError(t, err, "empty password keeps the old one")

	_, err = f.svc.Save(ctx, self, account.UserForm{
		Login: "jdoe", Password: "n3w", ConfirmPassword: "n3w", FirstName: "Janet", LastName: "Doe", Email: "j@x",
	})
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, "jdoe", "n3w")
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, self, account.UserForm{
		Login: "jdoe", FirstName: "Janet", LastName: "Doe", Email: "j@x", Permission: "admin",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	u, _ = f.users.GetUser(ctx, "jdoe")
	assert.Equal(t, "user", u.Permission)
}

func TestSaveOtherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := account.UserForm{Login: "jdoe", FirstName: "X", LastName: "Y", Email: "x@y", Permission: "control"}

	_, err := f.svc.Save(ctx, caller("ops", domain.RoleControl), form)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Save(ctx, caller("admin", domain.RoleAdmin), form)
	require.NoError(t, err)
	u, _ := f.users.GetUser(ctx, "jdoe")
	assert.Equal(t, "control", u.Permission)
	assert.Equal(t, "X", u.FirstName)
}

func TestSaveLegacyDelegation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	legacy := account.Caller{
		Principal:  domain.Principal{ID: "tcsuser", Roles: []domain.Role{domain.RoleUser}},
		RemoteAddr: trustedOrigin,
	}

	_, err := f.svc.Save(ctx, legacy, account.UserForm{Login: "jdoe", Permission: "control"})
	require.NoError(t, err)
	u, _ := f.users.GetUser(ctx, "jdoe")
	assert.Equal(t, "control", u.Permission)
	assert.Equal(t, "Jane", u.FirstName, "profile fields untouched")

	_, err = f.svc.Save(ctx, legacy, account.UserForm{Login: "jdoe", Permission: "admin"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.Save(ctx, legacy, account.UserForm{Login: "admin", Permission: "none"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	legacy.RemoteAddr = untrustedOrigin
	_, err = f.svc.Save(ctx, legacy, account.UserForm{Login: "jdoe", Permission: "user"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSaveBulkPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, caller("jdoe", domain.RoleUser), account.UserForm{Login: "all", Permission: "none"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	out, err := f.svc.Save(ctx, caller("admin", domain.RoleAdmin), account.UserForm{Login: "all", Permission: "none"})
	require.NoError(t, err)
	assert.Equal(t, account.PermissionsUpdated, out)

	users, _ := f.users.ListUsers(ctx)
	for _, u := range users {
		switch u.Login {
		case "admin":
			assert.Equal(t, "admin", u.Permission)
		case "tcsuser":
			assert.Equal(t, "user", u.Permission)
		default:
			assert.Equal(t, "none", u.Permission, u.Login)
		}
	}

	_, err = f.svc.Save(ctx, caller("admin", domain.RoleAdmin), account.UserForm{Login: "all", Permission: "bogus"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, caller("jdoe", domain.RoleUser), "ops"), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, caller("ghost", domain.RoleNone), "jdoe"), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, caller("admin", domain.RoleAdmin), "admin"), domain.ErrBadRequest)

	require.NoError(t, f.svc.Delete(ctx, caller("ops", domain.RoleControl), "jdoe"))
	_, err := f.users.GetUser(ctx, "jdoe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, caller("admin", domain.RoleAdmin), "jdoe"), domain.ErrNotFound)
}
