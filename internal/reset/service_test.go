package reset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioattend/internal/domain"
)

type fakeRepo struct {
	tokens map[int64]*domain.PasswordResetToken
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tokens: make(map[int64]*domain.PasswordResetToken)}
}

func (f *fakeRepo) Save(_ context.Context, t *domain.PasswordResetToken) error {
	f.nextID++
	t.ID = f.nextID
	clone := *t
	f.tokens[t.ID] = &clone
	return nil
}

func (f *fakeRepo) GetByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	for _, t := range f.tokens {
		if t.Token == token {
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) DeleteByUser(_ context.Context, userID int64) error {
	for id, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, id)
		}
	}
	return nil
}

func (f *fakeRepo) PurgeExpired(_ context.Context, now time.Time) error {
	for id, t := range f.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(f.tokens, id)
		}
	}
	return nil
}

func (f *fakeRepo) MarkUsed(_ context.Context, id int64, usedAt time.Time) error {
	t, ok := f.tokens[id]
	if !ok {
		return domain.ErrInvalidToken
	}
	t.UsedAt = &usedAt
	return nil
}

type fakeUsers struct {
	users  map[int64]*domain.User
	hashes map[int64]string
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.hashes[id] = hash
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

type fakeMailer struct {
	fail bool
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.fail {
		return errors.New("smtp not configured")
	}
	m.sent = append(m.sent, to)
	return nil
}

var baseTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newFixture(mailer *fakeMailer) (*Service, *fakeRepo, *fakeUsers, *time.Time) {
	repo := newFakeRepo()
	users := &fakeUsers{
		users:  map[int64]*domain.User{1: {ID: 1, Email: "jane@x.test"}},
		hashes: make(map[int64]string),
	}
	now := baseTime
	clock := func() time.Time { return now }
	svc := NewService(repo, users, fakeHasher{}, mailer, clock, 30*time.Minute, "https://app.x.test/")
	return svc, repo, users, &now
}

func TestRequest_UnknownEmailIsQuiet(t *testing.T) {
	mailer := &fakeMailer{}
	svc, repo, _, _ := newFixture(mailer)

	res, err := svc.Request(context.Background(), "ghost@x.test")
	require.NoError(t, err)
	assert.False(t, res.AccountFound)
	assert.Empty(t, res.FallbackURL)
	assert.Empty(t, repo.tokens)
	assert.Empty(t, mailer.sent)
}

func TestRequest_MintsSingleLiveToken(t *testing.T) {
	mailer := &fakeMailer{}
	svc, repo, _, _ := newFixture(mailer)
	ctx := context.Background()

	res1, err := svc.Request(ctx, "jane@x.test")
	require.NoError(t, err)
	assert.True(t, res1.AccountFound)
	assert.True(t, res1.Delivered)
	assert.Empty(t, res1.FallbackURL)
	assert.Len(t, repo.tokens, 1)

	// a second request replaces the first token
	res2, err := svc.Request(ctx, "Jane@X.Test")
	require.NoError(t, err)
	assert.True(t, res2.AccountFound)
	assert.Len(t, repo.tokens, 1)
	assert.Len(t, mailer.sent, 2)

	for _, tok := range repo.tokens {
		assert.NotContains(t, tok.Token, "-")
		assert.True(t, tok.ExpiresAt.Equal(baseTime.Add(30*time.Minute)))
	}
}

func TestRequest_FallbackURLOnlyWhenDeliveryFails(t *testing.T) {
	mailer := &fakeMailer{fail: true}
	svc, repo, _, _ := newFixture(mailer)

	res, err := svc.Request(context.Background(), "jane@x.test")
	require.NoError(t, err)
	assert.True(t, res.AccountFound)
	assert.False(t, res.Delivered)
	require.Len(t, repo.tokens, 1)
	for _, tok := range repo.tokens {
		assert.Equal(t, "https://app.x.test/reset-password?token="+tok.Token, res.FallbackURL)
	}
	assert.True(t, strings.HasPrefix(res.FallbackURL, "https://app.x.test/reset-password?token="))
}

func tokenValue(repo *fakeRepo) string {
	for _, t := range repo.tokens {
		return t.Token
	}
	return ""
}

func TestRedeem_SingleUse(t *testing.T) {
	mailer := &fakeMailer{}
	svc, repo, users, _ := newFixture(mailer)
	ctx := context.Background()

	_, err := svc.Request(ctx, "jane@x.test")
	require.NoError(t, err)
	token := tokenValue(repo)

	require.NoError(t, svc.Redeem(ctx, token, "newpassword"))
	assert.Equal(t, "hashed:newpassword", users.hashes[1])

	err = svc.Redeem(ctx, token, "anotherone")
	assert.ErrorIs(t, err, domain.ErrTokenUsed)
}

func TestRedeem_Expired(t *testing.T) {
	mailer := &fakeMailer{}
	svc, repo, _, now := newFixture(mailer)
	ctx := context.Background()

	_, err := svc.Request(ctx, "jane@x.test")
	require.NoError(t, err)
	token := tokenValue(repo)

	*now = baseTime.Add(31 * time.Minute)
	err = svc.Redeem(ctx, token, "newpassword")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestRedeem_UnknownToken(t *testing.T) {
	svc, _, _, _ := newFixture(&fakeMailer{})
	err := svc.Redeem(context.Background(), "nope", "newpassword")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRedeem_RequiresPassword(t *testing.T) {
	svc, _, _, _ := newFixture(&fakeMailer{})
	err := svc.Redeem(context.Background(), "whatever", "  ")
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestRequest_NewTokenInvalidatesOld(t *testing.T) {
	mailer := &fakeMailer{}
	svc, repo, _, _ := newFixture(mailer)
	ctx := context.Background()

	_, err := svc.Request(ctx, "jane@x.test")
	require.NoError(t, err)
	oldToken := tokenValue(repo)

	_, err = svc.Request(ctx, "jane@x.test")
	require.NoError(t, err)

	err = svc.Redeem(ctx, oldToken, "newpassword")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
