package corpus

import (
	"context"
	"testing"

	"github.com/patente-app/backend/internal/database/dbtest"
	"github.com/patente-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionCRUD(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	svc := NewService(NewStore(db))

	created, err := svc.CreateQuestion(ctx, models.QuestionRequest{Text: " Il segnale indica una curva ", Answer: "f", ParentNumber: 3, QuestionNumber: 4})
	require.NoError(t, err)
	assert.Equal(t, "Il segnale indica una curva", created.Text)
	assert.Equal(t, models.AnswerFalse, created.Answer)

	fa := "متن"
	updated, err := svc.UpdateQuestion(ctx, created.ID, models.QuestionRequest{Text: "Il segnale indica una curva a destra", TextFa: &fa, Answer: "V", ParentNumber: 3, QuestionNumber: 4})
	require.NoError(t, err)
	assert.Equal(t, models.AnswerTrue, updated.Answer)
	require.NotNil(t, updated.TextFa)
	assert.Equal(t, fa, *updated.TextFa)

	n, err := svc.Store().CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.DeleteQuestion(ctx, created.ID))
	_, err = svc.GetQuestion(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteQuestion(ctx, created.ID), models.ErrNotFound)
}

func TestCreateQuestionValidation(t *testing.T) {
	svc := NewService(NewStore(dbtest.New(t)))
	ctx := context.Background()

	tests := []models.QuestionRequest{
		{Text: "", Answer: "V", ParentNumber: 1, QuestionNumber: 1},
		{Text: "x", Answer: "X", ParentNumber: 1, QuestionNumber: 1},
		{Text: "x", Answer: "V", ParentNumber: 0, QuestionNumber: 1},
	}
	for _, req := range tests {
		_, err := svc.CreateQuestion(ctx, req)
		assert.ErrorIs(t, err, models.ErrInvalidArgument, "request %+v", req)
	}
}

func TestTranslationCRUD(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	svc := NewService(NewStore(db))

	_, err := svc.CreateTranslation(ctx, models.TranslationRequest{TextIT: "strada"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	tr, err := svc.CreateTranslation(ctx, models.TranslationRequest{TextIT: "strada", TextEN: "road", TextFA: "jadde"})
	require.NoError(t, err)

	tr2, err := svc.CreateTranslation(ctx, models.TranslationRequest{TextIT: "sosta", TextEN: "parking", TextFA: "tavaghof"})
	require.NoError(t, err)

	got, err := svc.Store().GetTranslationsByIDs(ctx, []int64{tr2.ID, tr.ID, 999})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, tr.ID, got[0].ID)

	up, err := svc.UpdateTranslation(ctx, tr.ID, models.TranslationRequest{TextIT: "strada", TextEN: "street", TextFA: "khiaban"})
	require.NoError(t, err)
	assert.Equal(t, "street", up.TextEN)

	_, err = svc.UpdateTranslation(ctx, 999, models.TranslationRequest{TextIT: "a", TextEN: "b", TextFA: "c"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, svc.DeleteTranslation(ctx, tr2.ID))
	list, err := svc.ListTranslations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestQuestionsMissingFarsi(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	store := NewStore(db)

	fa := "ترجمه"
	_, err := store.CreateQuestion(ctx, models.Question{Text: "a", Answer: "V", ParentNumber: 1, QuestionNumber: 1})
	require.NoError(t, err)
	_, err = store.CreateQuestion(ctx, models.Question{Text: "b", TextFa: &fa, Answer: "F", ParentNumber: 1, QuestionNumber: 2})
	require.NoError(t, err)

	missing, err := store.ListQuestionsMissingFarsi(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "a", missing[0].Text)

	require.NoError(t, store.SetQuestionFarsi(ctx, missing[0].ID, "الف"))
	missing, err = store.ListQuestionsMissingFarsi(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
