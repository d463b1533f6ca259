package services

import (
	"bytes"
	"context"
	"testing"

	"courtside/cache"
	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfiles(f *fixture, media MediaStore) (*ProfileService, *cache.MemoryCache) {
	c := cache.NewMemoryCache()
	return NewProfileService(f.db, f.eco, c, media, f.pub, f.log), c
}

func TestUpsertProfileCreatesProgress(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfiles(f, nil)
	ctx := context.Background()

	p, err := svc.Upsert(ctx, "u1", ProfileInput{DisplayName: "  José   Núñez ", City: "  san   FRANCISCO", Email: "jose@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "José Núñez", p.DisplayName)
	assert.Equal(t, "jose nunez", p.SearchName)
	assert.Equal(t, "San Francisco", p.City)
	assert.Equal(t, models.RolePlayer, p.Role)
	assert.Equal(t, "beginner", p.SkillLevel)

	assert.Equal(t, DefaultEconomyConfig.StarterTokens, f.progress(t, "u1").Tokens)

	p2, err := svc.Upsert(ctx, "u1", ProfileInput{DisplayName: "José N", Role: "coach", SkillLevel: "expert"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, p2.ID)
	assert.Equal(t, DefaultEconomyConfig.StarterTokens, f.progress(t, "u1").Tokens, "starter grant is paid once")

	changes := f.pub.forTable(profilesTable)
	require.Len(t, changes, 2)
	assert.Equal(t, "INSERT", string(changes[0].Event))
	assert.Equal(t, "UPDATE", string(changes[1].Event))
}

func TestProfileValidation(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfiles(f, nil)
	ctx := context.Background()
	lat := 10.0

	cases := []ProfileInput{
		{DisplayName: "x"},
		{DisplayName: "Valid", Role: "admin"},
		{DisplayName: "Valid", SkillLevel: "pro"},
		{DisplayName: "Valid", PreferredSurface: "sand"},
		{DisplayName: "Valid", Latitude: &lat},
	}
	for _, in := range cases {
		_, err := svc.Upsert(ctx, "u1", in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}
}

func TestSearchFoldsAccents(t *testing.T) {
	f := newFixture(t)
	svc, _ := newProfiles(f, nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "u1", ProfileInput{DisplayName: "José Núñez", City: "Madrid"})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "u2", ProfileInput{DisplayName: "Joséphine", Role: "coach", City: "Paris"})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "u3", ProfileInput{DisplayName: "Ana", City: "madrid"})
	require.NoError(t, err)

	out, err := svc.Search(ctx, ProfileQuery{Q: "jose"})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = svc.Search(ctx, ProfileQuery{Q: "JOSE", Role: "coach"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "u2", out[0].UserID)

	out, err = svc.Search(ctx, ProfileQuery{City: "MADRID"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestGetUsesCacheUntilUpsert(t *testing.T) {
	f := newFixture(t)
	svc, c := newProfiles(f, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Upsert(ctx, "u1", ProfileInput{DisplayName: "Ada"})
	require.NoError(t, err)
	p, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName)

	// A direct write is hidden by the cached copy.
	require.NoError(t, f.db.Model(&models.PlayerProfile{}).Where("user_id = ?", "u1").Update("bio", "hidden").Error)
	p, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Bio)

	require.NoError(t, c.Delete(ctx, cache.ProfileKey("u1")))
	p, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "hidden", p.Bio)
}

func TestSetAvatar(t *testing.T) {
	f := newFixture(t)
	media := &fakeMedia{}
	svc, _ := newProfiles(f, media)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "u1", ProfileInput{DisplayName: "Ada"})
	require.NoError(t, err)

	_, err = svc.SetAvatar(ctx, "u1", bytes.NewReader([]byte("gif")), "image/gif")
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := svc.SetAvatar(ctx, "u1", bytes.NewReader([]byte("png")), "image/png")
	require.NoError(t, err)
	require.Len(t, media.keys, 1)
	assert.Contains(t, p.AvatarURL, media.keys[0])

	stored, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.AvatarURL, stored.AvatarURL)

	noMedia, _ := newProfiles(f, nil)
	_, err = noMedia.SetAvatar(ctx, "u1", bytes.NewReader(nil), "image/png")
	assert.ErrorIs(t, err, ErrUnavailable)
}
