package identity

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioattend/internal/domain"
)

// fakeRepo mirrors the Postgres repo's contract in memory, including the
// role-code assignment inside Create.
type fakeRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]*domain.User)}
}

func (r *fakeRepo) Create(_ context.Context, u *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
		if u.FingerprintID != nil && existing.FingerprintID != nil && *existing.FingerprintID == *u.FingerprintID {
			return domain.ErrDuplicateFingerprint
		}
	}
	all := make([]domain.User, 0, len(r.users))
	for _, existing := range r.users {
		all = append(all, *existing)
	}
	if u.Role == domain.RoleStudent || u.Role == domain.RoleLecturer {
		seq := NextSequence(seqSourcesFor(all, u.Role))
		u.SetRoleCode(domain.RoleCode{Seq: seq, Code: domain.FormatRoleCode(u.Role, seq)})
	}
	r.nextID++
	u.ID = r.nextID
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeRepo) Update(_ context.Context, u *domain.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetByFingerprintID(_ context.Context, fp string) (*domain.User, error) {
	for _, u := range r.users {
		if u.FingerprintID != nil && *u.FingerprintID == fp {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }
func (fakeHasher) Verify(plaintext, hashed string) bool  { return hashed == "hashed:"+plaintext }

func fixedClock(t time.Time) domain.Clock {
	return func() time.Time { return t }
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, fakeHasher{}, fixedClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)))
}

func TestRegister_AssignsSequentialRoleCodes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())

	s1, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.test", Password: "pw", Role: domain.RoleStudent})
	require.NoError(t, err)
	s2, err := svc.Register(ctx, RegisterInput{Name: "B", Email: "b@x.test", Password: "pw", Role: domain.RoleStudent})
	require.NoError(t, err)
	l1, err := svc.Register(ctx, RegisterInput{Name: "C", Email: "c@x.test", Password: "pw", Role: domain.RoleLecturer})
	require.NoError(t, err)

	require.NotNil(t, s1.StudentID)
	require.NotNil(t, s2.StudentID)
	require.NotNil(t, l1.StaffID)
	assert.Equal(t, "STU-00001", *s1.StudentID)
	assert.Equal(t, "STU-00002", *s2.StudentID)
	assert.Equal(t, "LEC-00001", *l1.StaffID)
	assert.Nil(t, s1.StaffID)
	assert.Nil(t, l1.StudentID)
}

func TestRegister_NormalizesEmailAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())

	u, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "  Ada@X.Test ", Password: "pw", Role: domain.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "ada@x.test", u.Email)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "ADA@x.test", Password: "pw", Role: domain.RoleStudent})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestRegister_RejectsDuplicateFingerprint(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())
	fp := "FP-1"

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.test", Password: "pw", Role: domain.RoleStudent, FingerprintID: &fp})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "b@x.test", Password: "pw", Role: domain.RoleStudent, FingerprintID: &fp})
	assert.ErrorIs(t, err, domain.ErrDuplicateFingerprint)
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.test", Password: "pw", Role: "JANITOR"})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestAuthenticate_UniformFailure(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.test", Password: "secret", Role: domain.RoleStudent})
	require.NoError(t, err)

	// wrong password and unknown email fail identically
	_, errWrongPw := svc.Authenticate(ctx, "a@x.test", "nope")
	_, errUnknown := svc.Authenticate(ctx, "ghost@x.test", "secret")
	assert.ErrorIs(t, errWrongPw, domain.ErrInvalidCredential)
	assert.ErrorIs(t, errUnknown, domain.ErrInvalidCredential)

	u, err := svc.Authenticate(ctx, "A@x.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a@x.test", u.Email)
}

func TestUpdate_ReChecksUniquenessExcludingSelf(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())

	a, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.test", Password: "pw", Role: domain.RoleStudent})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "b@x.test", Password: "pw", Role: domain.RoleStudent})
	require.NoError(t, err)

	// keeping your own email is fine
	_, err = svc.Update(ctx, a.ID, UpdateInput{Name: "A2", Email: "a@x.test"})
	assert.NoError(t, err)

	// taking someone else's is not
	_, err = svc.Update(ctx, a.ID, UpdateInput{Name: "A2", Email: "b@x.test"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo)

	u, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.test", Password: "old", Role: domain.RoleStudent})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, "wrong", "new")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "old", "new"))
	_, err = svc.Authenticate(ctx, "a@x.test", "new")
	assert.NoError(t, err)
	_, err = svc.Authenticate(ctx, "a@x.test", "old")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestBackfillSequences(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo)

	// three legacy students: one with a textual code, two without any
	legacy := "S010"
	for i, u := range []*domain.User{
		{Email: "s1@x.test", Name: "S1", Role: domain.RoleStudent, StudentID: &legacy},
		{Email: "s2@x.test", Name: "S2", Role: domain.RoleStudent},
		{Email: "s3@x.test", Name: "S3", Role: domain.RoleStudent},
	} {
		clone := *u
		clone.ID = int64(i + 1)
		repo.users[clone.ID] = &clone
	}
	repo.nextID = 3

	n, err := svc.BackfillSequences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// assignment continues past the legacy code, in ID order
	s1, _ := repo.GetByID(ctx, 1)
	s2, _ := repo.GetByID(ctx, 2)
	s3, _ := repo.GetByID(ctx, 3)
	assert.Equal(t, "STU-00011", *s1.StudentID)
	assert.Equal(t, "STU-00012", *s2.StudentID)
	assert.Equal(t, "STU-00013", *s3.StudentID)

	// second run is a no-op
	n, err = svc.BackfillSequences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.test", NormalizeEmail("  A@X.Test "))
	assert.Equal(t, "", NormalizeEmail(strings.Repeat(" ", 3)))
}
