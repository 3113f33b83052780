package biometric

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioattend/internal/domain"
)

type fakeRepo struct {
	rows   map[int64]*domain.BiometricEnrollment
	nextID int64
}

func (f *fakeRepo) Upsert(_ context.Context, e *domain.BiometricEnrollment) error {
	if existing, ok := f.rows[e.UserID]; ok {
		e.ID = existing.ID
		e.EnrolledAt = existing.EnrolledAt
	} else {
		f.nextID++
		e.ID = f.nextID
	}
	clone := *e
	f.rows[e.UserID] = &clone
	return nil
}

func (f *fakeRepo) GetByUserID(_ context.Context, userID int64) (*domain.BiometricEnrollment, error) {
	e, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

type fakeUsers struct {
	users map[int64]*domain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsers) GetByFingerprintID(_ context.Context, fp string) (*domain.User, error) {
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		u := f.users[id]
		if u.FingerprintID != nil && *u.FingerprintID == fp {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Update(_ context.Context, u *domain.User) error {
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func strptr(s string) *string { return &s }

func newFixture() (*Service, *fakeRepo, *fakeUsers) {
	repo := &fakeRepo{rows: make(map[int64]*domain.BiometricEnrollment)}
	users := &fakeUsers{users: map[int64]*domain.User{
		1: {ID: 1, Role: domain.RoleStudent, FingerprintID: strptr("FP-1")},
		2: {ID: 2, Role: domain.RoleStudent},
		3: {ID: 3, Role: domain.RoleStudent, FingerprintID: strptr("FP-1")},
	}}
	clock := func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return NewService(repo, users, clock), repo, users
}

func TestEnroll_RequiresCredentialForFingerprint(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFixture()

	_, err := svc.Enroll(ctx, 2, Flags{FingerprintEnrolled: true})
	assert.ErrorIs(t, err, domain.ErrMissingFingerprintID)

	e, err := svc.Enroll(ctx, 1, Flags{FingerprintEnrolled: true})
	require.NoError(t, err)
	assert.True(t, e.FingerprintEnrolled)
}

func TestEnroll_RejectsForeignCredential(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFixture()

	// users 1 and 3 carry the same credential id; whoever enrolls second loses
	_, err := svc.Enroll(ctx, 1, Flags{FingerprintEnrolled: true})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, 3, Flags{FingerprintEnrolled: true})
	assert.ErrorIs(t, err, domain.ErrDuplicateFingerprint)
}

func TestEnroll_UnknownUser(t *testing.T) {
	svc, _, _ := newFixture()
	_, err := svc.Enroll(context.Background(), 999, Flags{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUpdate_DisablingClearsCredential(t *testing.T) {
	ctx := context.Background()
	svc, _, users := newFixture()

	_, err := svc.Enroll(ctx, 1, Flags{FingerprintEnrolled: true})
	require.NoError(t, err)

	e, err := svc.Update(ctx, 1, Flags{FingerprintEnrolled: false, FaceEnrolled: true})
	require.NoError(t, err)
	assert.False(t, e.FingerprintEnrolled)
	assert.True(t, e.FaceEnrolled)

	u, err := users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, u.FingerprintID)
}

func TestUpdate_RequiresExistingRow(t *testing.T) {
	svc, _, _ := newFixture()
	_, err := svc.Update(context.Background(), 1, Flags{})
	assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
}

func TestUpsert_PreservesEnrolledAt(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newFixture()

	first, err := svc.Enroll(ctx, 1, Flags{FingerprintEnrolled: true})
	require.NoError(t, err)

	second, err := svc.Enroll(ctx, 1, Flags{FingerprintEnrolled: true, FaceEnrolled: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.EnrolledAt.Equal(first.EnrolledAt))
	assert.Len(t, repo.rows, 1)
}

func TestHasFingerprintEnrollment(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFixture()

	// no row yet: false, not an error
	ok, err := svc.HasFingerprintEnrollment(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Enroll(ctx, 1, Flags{FingerprintEnrolled: true})
	require.NoError(t, err)

	ok, err = svc.HasFingerprintEnrollment(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// face-only enrollment does not satisfy the gate
	_, err = svc.Update(ctx, 1, Flags{FaceEnrolled: true})
	require.NoError(t, err)
	ok, err = svc.HasFingerprintEnrollment(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
