package identity

import (
	"context"
	"log"
	"sort"
	"strings"

	"bioattend/internal/domain"
)

// Hasher is the password hashing collaborator. The registry never
// inspects the hash format.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

// Repo is the registry's view of user storage. Create must serialize
// concurrent registrations of the same role and assign the role code
// inside the same transaction as the insert; lookups return nil when the
// user does not exist.
type Repo interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByFingerprintID(ctx context.Context, fingerprintID string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	Count(ctx context.Context) (int64, error)
}

// Service is the identity registry.
type Service struct {
	repo   Repo
	hasher Hasher
	now    domain.Clock
}

// NewService creates the registry.
func NewService(repo Repo, hasher Hasher, now domain.Clock) *Service {
	if now == nil {
		now = domain.SystemClock
	}
	return &Service{repo: repo, hasher: hasher, now: now}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Role          domain.Role
	Department    string
	FingerprintID *string
	FaceID        *string
}

// Register creates a user, normalizing the email and assigning the next
// role sequence. The repo's unique constraints are the authoritative
// guard; lookups here are early exits.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" {
		return nil, domain.Validationf("name is required")
	}
	if email == "" {
		return nil, domain.Validationf("email is required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, domain.Validationf("password is required")
	}
	if !domain.ValidRole(in.Role) {
		return nil, domain.Validationf("role must be ADMIN, LECTURER or STUDENT")
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrDuplicateEmail
	}

	if in.FingerprintID != nil && strings.TrimSpace(*in.FingerprintID) != "" {
		owner, err := s.repo.GetByFingerprintID(ctx, *in.FingerprintID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return nil, domain.ErrDuplicateFingerprint
		}
	} else {
		in.FingerprintID = nil
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &domain.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		Role:          in.Role,
		Department:    strings.TrimSpace(in.Department),
		FingerprintID: in.FingerprintID,
		FaceID:        in.FaceID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate performs a stateless credential check, returning a uniform
// error for unknown email and wrong password alike.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || !s.hasher.Verify(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}
	return u, nil
}

// UpdateInput carries the mutable profile fields.
type UpdateInput struct {
	Name          string
	Email         string
	Department    string
	Avatar        *string
	FingerprintID *string
	FaceID        *string
}

// Update edits a user's profile. Email and fingerprint uniqueness are
// re-checked excluding the user itself; role is fixed at registration.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}

	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" {
		return nil, domain.Validationf("name is required")
	}
	if email == "" {
		return nil, domain.Validationf("email is required")
	}
	if email != u.Email {
		other, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, domain.ErrDuplicateEmail
		}
	}

	if in.FingerprintID != nil {
		fp := strings.TrimSpace(*in.FingerprintID)
		if fp == "" {
			u.FingerprintID = nil
		} else {
			owner, err := s.repo.GetByFingerprintID(ctx, fp)
			if err != nil {
				return nil, err
			}
			if owner != nil && owner.ID != id {
				return nil, domain.ErrDuplicateFingerprint
			}
			u.FingerprintID = &fp
		}
	}
	if in.FaceID != nil {
		u.FaceID = in.FaceID
	}
	if in.Avatar != nil {
		u.Avatar = *in.Avatar
	}

	u.Name = name
	u.Email = email
	u.Department = strings.TrimSpace(in.Department)
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetAvatar stores the uploaded avatar URL on the profile.
func (s *Service) SetAvatar(ctx context.Context, id int64, url string) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	u.Avatar = url
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword swaps the stored hash after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return domain.ErrInvalidCredential
	}
	if strings.TrimSpace(next) == "" {
		return domain.Validationf("new password is required")
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, id, hash)
}

// GetByID resolves a user or reports NotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// GetByEmail resolves a user by normalized email or reports NotFound.
func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

// ListByRole returns users with the given role.
func (s *Service) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, domain.Validationf("unknown role")
	}
	return s.repo.ListByRole(ctx, role)
}

// BackfillSequences assigns sequence numbers to users that predate
// sequence tracking, in ascending ID order per role, never reusing or
// decreasing an already assigned number. Idempotent; run once at startup.
func (s *Service) BackfillSequences(ctx context.Context) (int, error) {
	assigned := 0
	for _, role := range []domain.Role{domain.RoleStudent, domain.RoleLecturer} {
		users, err := s.repo.ListByRole(ctx, role)
		if err != nil {
			return assigned, err
		}
		next := NextSequence(seqSourcesFor(users, role))

		sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
		for i := range users {
			u := &users[i]
			if _, ok := u.RoleCode(); ok {
				continue
			}
			u.SetRoleCode(domain.RoleCode{Seq: next, Code: domain.FormatRoleCode(role, next)})
			u.UpdatedAt = s.now()
			if err := s.repo.Update(ctx, u); err != nil {
				return assigned, err
			}
			next++
			assigned++
		}
	}
	return assigned, nil
}

// SeedDefaults creates the sample admin, lecturer and student accounts
// when the registry is empty.
func (s *Service) SeedDefaults(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	seeds := []RegisterInput{
		{Name: "Admin User", Email: "admin@bioattend.local", Password: "admin123", Role: domain.RoleAdmin, Department: "Administration"},
		{Name: "Dr. John Smith", Email: "lecturer1@bioattend.local", Password: "lecturer123", Role: domain.RoleLecturer, Department: "Computer Science"},
		{Name: "Jane Doe", Email: "student1@bioattend.local", Password: "student123", Role: domain.RoleStudent, Department: "Computer Science"},
	}
	for _, in := range seeds {
		if _, err := s.Register(ctx, in); err != nil {
			return err
		}
	}
	log.Println("sample users seeded")
	return nil
}

// NormalizeEmail trims and lower-cases an address for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
