package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerdesk/internal/model"
)

func TestInferCollectionTieIsAmbiguous(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	a := env.upload(t, 1, textFile("balta.txt", baltaOffer), textFile("if.txt", ifOffer))
	b := env.upload(t, 1, textFile("balta.txt", baltaOffer), textFile("if.txt", ifOffer))

	_, err := env.shares.InferCollection(ctx, []model.DocumentRef{{Filename: "balta.txt"}, {Filename: "if.txt"}}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguous)

	var ambiguous *AmbiguousError
	require.True(t, errors.As(err, &ambiguous))
	assert.ElementsMatch(t, []string{a.Collection.Token, b.Collection.Token}, ambiguous.Tokens)
	assert.Equal(t, int64(2), ambiguous.Matches)
}

func TestInferCollectionPicksStrictMaximum(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	a := env.upload(t, 1, textFile("balta.txt", baltaOffer), textFile("if.txt", ifOffer))
	env.upload(t, 1, textFile("balta.txt", baltaOffer))

	token, err := env.shares.InferCollection(ctx, []model.DocumentRef{{Filename: "balta.txt"}, {Filename: "if.txt"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, a.Collection.Token, token)

	// Unnormalized names match the stored ones.
	token, err = env.shares.InferCollection(ctx, []model.DocumentRef{{Filename: "  dir/if.txt"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, a.Collection.Token, token)

	token, err = env.shares.InferCollection(ctx, []model.DocumentRef{{ID: a.Documents[0].ID}}, 1)
	require.NoError(t, err)
	assert.Equal(t, a.Collection.Token, token)
}

func TestInferCollectionNoMatch(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.upload(t, 1, textFile("balta.txt", baltaOffer))

	_, err := env.shares.InferCollection(ctx, []model.DocumentRef{{Filename: "ergo.txt"}}, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.shares.InferCollection(ctx, []model.DocumentRef{{Filename: "balta.txt"}}, 2)
	assert.ErrorIs(t, err, ErrNotFound, "other organizations never match")

	_, err = env.shares.InferCollection(ctx, []model.DocumentRef{{Filename: "  "}}, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolveShareWritesBackInferredToken(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	a := env.upload(t, 1, textFile("balta.txt", baltaOffer), textFile("if.txt", ifOffer))

	share, err := env.shares.Create(ctx, CreateShareInput{
		OrgID:     1,
		UserID:    1,
		Documents: []model.DocumentRef{{Filename: "balta.txt"}, {Filename: "if.txt"}},
	})
	require.NoError(t, err)
	assert.Empty(t, share.CollectionToken)

	resolved, err := env.shares.Resolve(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, a.Collection.ID, resolved.Collection.ID)
	assert.Equal(t, a.Collection.Token, resolved.Share.CollectionToken)

	stored, err := env.shareRepo.GetByToken(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, a.Collection.Token, stored.CollectionToken)

	// A later upload with the same names does not move a resolved share.
	env.upload(t, 1, textFile("balta.txt", baltaOffer), textFile("if.txt", ifOffer))
	resolved, err = env.shares.Resolve(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, a.Collection.ID, resolved.Collection.ID)
}

func TestResolveAmbiguousShareIsNotWrittenBack(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.upload(t, 1, textFile("balta.txt", baltaOffer))
	env.upload(t, 1, textFile("balta.txt", baltaOffer))

	share, err := env.shares.Create(ctx, CreateShareInput{OrgID: 1, Documents: []model.DocumentRef{{Filename: "balta.txt"}}})
	require.NoError(t, err)

	_, err = env.shares.Resolve(ctx, share.Token)
	assert.ErrorIs(t, err, ErrAmbiguous)

	stored, err := env.shareRepo.GetByToken(ctx, share.Token)
	require.NoError(t, err)
	assert.Empty(t, stored.CollectionToken)
}

func TestCreateShare(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	a := env.upload(t, 1, textFile("balta.txt", baltaOffer))

	_, err := env.shares.Create(ctx, CreateShareInput{OrgID: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.shares.Create(ctx, CreateShareInput{OrgID: 2, CollectionToken: a.Collection.Token})
	assert.ErrorIs(t, err, ErrNotFound)

	share, err := env.shares.Create(ctx, CreateShareInput{OrgID: 1, CollectionToken: a.Collection.Token})
	require.NoError(t, err)
	resolved, err := env.shares.Resolve(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, a.Collection.Token, resolved.Collection.Token)

	_, err = env.shares.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
