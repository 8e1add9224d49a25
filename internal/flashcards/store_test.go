package flashcards

import (
	"context"
	"testing"
	"time"

	"github.com/patente-app/backend/internal/corpus"
	"github.com/patente-app/backend/internal/database/dbtest"
	"github.com/patente-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashcardStore(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	items := corpus.NewStore(db)
	user := dbtest.CreateUser(t, db, "giulia@example.com")

	var ids []int64
	for _, it := range []string{"strada", "incrocio", "sorpasso", "galleria"} {
		tr, err := items.CreateTranslation(ctx, models.Translation{TextIT: it, TextEN: it + "-en", TextFA: it + "-fa"})
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}

	svc := NewService(items, NewStore(db), nil)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	answer := func(id int64, r models.FlashcardResult) *models.FlashcardAnswerResponse {
		resp, err := svc.Answer(ctx, user, id, r)
		require.NoError(t, err)
		return resp
	}
	for i := 0; i < 4; i++ {
		answer(ids[0], models.ResultCorrect)
	}
	answer(ids[1], models.ResultCorrect)
	answer(ids[1], models.ResultCorrect)
	last := answer(ids[2], models.ResultWrong)

	assert.Equal(t, 0, last.Progress.Score)
	assert.Equal(t, 1, last.Progress.Attempts)
	assert.NotZero(t, last.Progress.ID)

	// 3 + 2 + 0 credit over 4 cards of 3 points each.
	assert.Equal(t, models.FlashcardAggregate{TotalTranslations: 4, Mastered: 1, ScoreTwo: 1, Percentage: 16.67}, last.OverallProgress)

	store := NewStore(db)
	ceiling := 2
	eligible, err := store.ListEligibleTranslationIDs(ctx, user, &ceiling)
	require.NoError(t, err)
	assert.Equal(t, ids[1:], eligible)

	all, err := store.ListEligibleTranslationIDs(ctx, user, nil)
	require.NoError(t, err)
	assert.Equal(t, ids, all)

	responded, err := svc.Responded(ctx, user)
	require.NoError(t, err)
	require.Len(t, responded, 3)
	assert.Equal(t, ids[2], responded[0].ID)
	assert.Equal(t, ids[0], responded[2].ID)

	page, err := svc.List(ctx, user, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Page: 2, PerPage: 3, Total: 4, LastPage: 2}, page.Pagination)
	require.Len(t, page.Translations, 1)
	assert.Equal(t, "galleria", page.Translations[0].TextIT)
	assert.Nil(t, page.Translations[0].Score)
	assert.Nil(t, page.Translations[0].LastAttemptAt)

	first, err := svc.List(ctx, user, 1, 3)
	require.NoError(t, err)
	require.NotNil(t, first.Translations[0].Score)
	assert.Equal(t, 4, *first.Translations[0].Score)

	recs, err := svc.ListProgress(ctx, user)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestFlashcardAnswerMissingTranslation(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "marco@example.com")
	svc := NewService(corpus.NewStore(db), NewStore(db), nil)

	_, err := svc.Answer(context.Background(), user, 12345, models.ResultCorrect)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
