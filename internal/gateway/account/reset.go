package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"observe/internal/domain"
)

// RequestReset mints a new reset token for login, replacing any earlier one,
// and mails the redemption link to the account's address. The token is
// persisted before delivery, so a failed send leaves it redeemable.
func (s *Service) RequestReset(ctx context.Context, login string) error {
	err := s.requestReset(ctx, login)
	s.recordReset(ctx, "request", err)
	return err
}

func (s *Service) requestReset(ctx context.Context, login string) error {
	if login == domain.ReservedAdmin {
		return fmt.Errorf("%w: the admin password cannot be reset", domain.ErrBadRequest)
	}
	u, err := s.users.GetUser(ctx, login)
	if err != nil {
		return err
	}

	token, err := s.mintToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, login, domain.ResetToken{Value: token, IssuedAt: s.now().UTC()}); err != nil {
		return err
	}

	err = s.mailer.Send(ctx, domain.Mail{
		To:      u.Email,
		Subject: fmt.Sprintf("Observe: change '%s' password", login),
		Body:    "Link for change password: " + s.resetLink(login, token),
	})
	s.recordMail(ctx, err)
	if err != nil {
		slog.ErrorContext(ctx, "sending reset link", "login", login, "error", err)
		if !errors.Is(err, domain.ErrDeliveryFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
		}
		return err
	}
	slog.InfoContext(ctx, "reset link sent", "login", login)
	return nil
}

// CheckResetTarget reports whether login may use the reset form at all.
func (s *Service) CheckResetTarget(ctx context.Context, login string) error {
	if login == domain.ReservedAdmin {
		return fmt.Errorf("%w: the admin password cannot be reset", domain.ErrBadRequest)
	}
	_, err := s.users.GetUser(ctx, login)
	return err
}

// RedeemReset sets a new password when token is the outstanding reset token
// of login. The token is cleared in the same write, so it works only once.
func (s *Service) RedeemReset(ctx context.Context, login, token, password, confirm string) error {
	err := s.redeemReset(ctx, login, token, password, confirm)
	s.recordReset(ctx, "redeem", err)
	return err
}

func (s *Service) redeemReset(ctx context.Context, login, token, password, confirm string) error {
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	if password == "" {
		return &ValidationError{Field: "password"}
	}
	if login == domain.ReservedAdmin {
		return fmt.Errorf("%w: the admin password cannot be reset", domain.ErrBadRequest)
	}
	u, err := s.users.GetUser(ctx, login)
	if err != nil {
		return err
	}

	if token == "" || u.ResetToken == nil {
		return domain.ErrInvalidToken
	}
	if ttl := s.cfg.ResetTokenTTL; ttl > 0 && s.now().Sub(u.ResetToken.IssuedAt) > ttl {
		return fmt.Errorf("%w: link expired", domain.ErrInvalidToken)
	}

	salt, err := newSalt()
	if err != nil {
		return err
	}
	if err := s.users.ConsumeResetToken(ctx, login, token, Digest(password, salt), salt); err != nil {
		return err
	}
	slog.InfoContext(ctx, "password changed via reset link", "login", login)
	return nil
}

func (s *Service) mintToken() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	return id.String(), nil
}

func (s *Service) resetLink(login, token string) string {
	return strings.TrimSuffix(s.cfg.ResetLinkBase, "/") + "/users/" + url.PathEscape(login) + "/" + token
}

func (s *Service) recordReset(ctx context.Context, stage string, err error) {
	if s.metrics != nil {
		s.metrics.RecordPasswordReset(ctx, stage, outcome(err))
	}
}

func (s *Service) recordMail(ctx context.Context, err error) {
	if s.metrics != nil {
		s.metrics.RecordMailDelivery(ctx, outcome(err))
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
