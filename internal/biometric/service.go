package biometric

import (
	"context"
	"strings"

	"bioattend/internal/domain"
)

// Repo persists the per-user enrollment ledger.
type Repo interface {
	Upsert(ctx context.Context, e *domain.BiometricEnrollment) error
	GetByUserID(ctx context.Context, userID int64) (*domain.BiometricEnrollment, error)
}

// Users is the slice of the identity registry the ledger needs: resolving
// users, finding a credential's owner and clearing credentials.
type Users interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByFingerprintID(ctx context.Context, fingerprintID string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// Service is the biometric enrollment ledger.
type Service struct {
	repo  Repo
	users Users
	now   domain.Clock
}

// NewService creates the ledger.
func NewService(repo Repo, users Users, now domain.Clock) *Service {
	if now == nil {
		now = domain.SystemClock
	}
	return &Service{repo: repo, users: users, now: now}
}

// Flags are the modality switches applied by enroll/update.
type Flags struct {
	FingerprintEnrolled bool
	FaceEnrolled        bool
}

// Enroll records the user's modality flags, upserting the ledger row.
// Enabling the fingerprint flag requires the user to already carry a
// credential identifier that no other user owns; disabling it clears the
// credential.
func (s *Service) Enroll(ctx context.Context, userID int64, flags Flags) (*domain.BiometricEnrollment, error) {
	if err := s.applyCredentialRule(ctx, userID, flags); err != nil {
		return nil, err
	}

	now := s.now()
	e := &domain.BiometricEnrollment{
		UserID:              userID,
		FingerprintEnrolled: flags.FingerprintEnrolled,
		FaceEnrolled:        flags.FaceEnrolled,
		EnrolledAt:          now,
		UpdatedAt:           now,
	}
	if err := s.repo.Upsert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update edits an existing ledger row under the same credential rules.
func (s *Service) Update(ctx context.Context, userID int64, flags Flags) (*domain.BiometricEnrollment, error) {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrEnrollmentNotFound
	}
	if err := s.applyCredentialRule(ctx, userID, flags); err != nil {
		return nil, err
	}

	existing.FingerprintEnrolled = flags.FingerprintEnrolled
	existing.FaceEnrolled = flags.FaceEnrolled
	existing.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) applyCredentialRule(ctx context.Context, userID int64, flags Flags) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	if flags.FingerprintEnrolled {
		if user.FingerprintID == nil || strings.TrimSpace(*user.FingerprintID) == "" {
			return domain.ErrMissingFingerprintID
		}
		owner, err := s.users.GetByFingerprintID(ctx, *user.FingerprintID)
		if err != nil {
			return err
		}
		if owner != nil && owner.ID != user.ID {
			return domain.ErrDuplicateFingerprint
		}
		return nil
	}

	if user.FingerprintID != nil {
		user.FingerprintID = nil
		user.UpdatedAt = s.now()
		return s.users.Update(ctx, user)
	}
	return nil
}

// GetByUserID returns the ledger row or NotFound.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*domain.BiometricEnrollment, error) {
	e, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.ErrEnrollmentNotFound
	}
	return e, nil
}

// HasFingerprintEnrollment is the gate used by the marking protocol: a
// pure query that reports false, never an error, when no row exists.
func (s *Service) HasFingerprintEnrollment(ctx context.Context, userID int64) (bool, error) {
	e, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return e != nil && e.FingerprintEnrolled, nil
}
