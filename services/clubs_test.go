package services

import (
	"bytes"
	"context"
	"testing"

	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateClubSlugs(t *testing.T) {
	f := newFixture(t)
	svc := NewClubService(f.db, nil, f.pub, f.log)
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", CreateClubInput{Name: "Ace Club", City: "new  york"})
	require.NoError(t, err)
	assert.Equal(t, "ace-club", a.Slug)
	assert.Equal(t, "New York", a.City)
	assert.Equal(t, int64(1), a.MemberCount)

	b, err := svc.Create(ctx, "u2", CreateClubInput{Name: "  Ace   Club! "})
	require.NoError(t, err)
	assert.Equal(t, "ace-club-2", b.Slug)

	c, err := svc.Create(ctx, "u3", CreateClubInput{Name: "Café Rallye"})
	require.NoError(t, err)
	assert.Equal(t, "cafe-rallye", c.Slug)

	_, err = svc.Create(ctx, "u1", CreateClubInput{Name: "ab"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(ctx, "u1", CreateClubInput{Name: "!!!"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, err := svc.List(ctx, "NEW YORK", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestClubMembership(t *testing.T) {
	f := newFixture(t)
	svc := NewClubService(f.db, nil, f.pub, f.log)
	ctx := context.Background()

	club, err := svc.Create(ctx, "owner", CreateClubInput{Name: "Baseline Club"})
	require.NoError(t, err)

	_, err = svc.Join(ctx, club.Slug, "u1")
	require.NoError(t, err)
	_, err = svc.Join(ctx, club.Slug, "u1")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Join(ctx, "no-such-club", "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, club.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.MemberCount)

	members, err := svc.Members(ctx, club.Slug)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	assert.ErrorIs(t, svc.Leave(ctx, club.Slug, "owner"), ErrInvalidState)
	require.NoError(t, svc.Leave(ctx, club.Slug, "u1"))
	assert.ErrorIs(t, svc.Leave(ctx, club.Slug, "u1"), ErrNotFound)

	got, err = svc.Get(ctx, club.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.MemberCount)
}

func TestClubLogo(t *testing.T) {
	f := newFixture(t)
	media := &fakeMedia{}
	svc := NewClubService(f.db, media, f.pub, f.log)
	ctx := context.Background()

	club, err := svc.Create(ctx, "owner", CreateClubInput{Name: "Net Rushers"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, club.Slug, "member")
	require.NoError(t, err)

	_, err = svc.SetLogo(ctx, club.Slug, "member", bytes.NewReader([]byte("x")), "image/png")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.SetLogo(ctx, club.Slug, "stranger", bytes.NewReader([]byte("x")), "image/png")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.db.Model(&models.ClubMember{}).
		Where("club_id = ? AND user_id = ?", club.ID, "member").
		Update("role", models.ClubRoleAdmin).Error)
	updated, err := svc.SetLogo(ctx, club.Slug, "member", bytes.NewReader([]byte("x")), "image/webp")
	require.NoError(t, err)
	require.Len(t, media.keys, 1)
	assert.Equal(t, "https://cdn.test/"+media.keys[0], updated.LogoURL)

	noMedia := NewClubService(f.db, nil, f.pub, f.log)
	_, err = noMedia.SetLogo(ctx, club.Slug, "owner", bytes.NewReader(nil), "image/png")
	assert.ErrorIs(t, err, ErrUnavailable)
}
