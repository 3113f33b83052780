package reset

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"bioattend/internal/domain"
)

// Repo persists reset tokens.
type Repo interface {
	Save(ctx context.Context, t *domain.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	DeleteByUser(ctx context.Context, userID int64) error
	PurgeExpired(ctx context.Context, now time.Time) error
	MarkUsed(ctx context.Context, id int64, usedAt time.Time) error
}

// Users is the identity slice the reset flow needs.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// Hasher hashes the replacement password.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// Mailer is the outbound delivery collaborator; one attempt per request.
type Mailer interface {
	Send(to, subject, body string) error
}

// Service is the credential reset ledger.
type Service struct {
	repo        Repo
	users       Users
	hasher      Hasher
	mailer      Mailer
	now         domain.Clock
	ttl         time.Duration
	frontendURL string
}

// NewService creates the ledger.
func NewService(repo Repo, users Users, hasher Hasher, mailer Mailer, now domain.Clock, ttl time.Duration, frontendURL string) *Service {
	if now == nil {
		now = domain.SystemClock
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{repo: repo, users: users, hasher: hasher, mailer: mailer, now: now, ttl: ttl, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// Result reports the outcome of a reset request. The transport layer must
// present a uniform message whether or not the account was found; the
// fallback URL is exposed only when delivery could not be confirmed.
type Result struct {
	AccountFound bool
	Delivered    bool
	FallbackURL  string
}

// Request mints a fresh single-use token for the account, invalidating any
// prior ones, and attempts one mail delivery. An unknown email produces a
// quiet no-op result; it never errors, so callers cannot distinguish it.
func (s *Service) Request(ctx context.Context, email string) (Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Result{}, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return Result{}, err
	}
	if user == nil {
		return Result{}, nil
	}

	now := s.now()
	if err := s.repo.DeleteByUser(ctx, user.ID); err != nil {
		return Result{}, err
	}
	if err := s.repo.PurgeExpired(ctx, now); err != nil {
		return Result{}, err
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Save(ctx, token); err != nil {
		return Result{}, err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token.Token)
	delivered := s.deliver(user.Email, resetURL)

	res := Result{AccountFound: true, Delivered: delivered}
	if !delivered {
		res.FallbackURL = resetURL
	}
	return res, nil
}

func (s *Service) deliver(to, resetURL string) bool {
	body := fmt.Sprintf(
		"You requested a password reset.\n\nOpen the link below to choose a new password:\n%s\n\nThis link expires in %d minutes.\n",
		resetURL, int(s.ttl.Minutes()))
	if err := s.mailer.Send(to, "Password Reset", body); err != nil {
		log.Printf("reset mail to %s failed: %v", to, err)
		return false
	}
	return true
}

// Redeem consumes a token, replacing the user's password hash and stamping
// usedAt so any further redemption fails.
func (s *Service) Redeem(ctx context.Context, tokenValue, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return domain.Validationf("new password is required")
	}

	token, err := s.repo.GetByToken(ctx, strings.TrimSpace(tokenValue))
	if err != nil {
		return err
	}
	if token == nil {
		return domain.ErrInvalidToken
	}

	now := s.now()
	if token.UsedAt != nil {
		return domain.ErrTokenUsed
	}
	if !now.Before(token.ExpiresAt) {
		return domain.ErrTokenExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, token.UserID, hash); err != nil {
		return err
	}
	return s.repo.MarkUsed(ctx, token.ID, now)
}
