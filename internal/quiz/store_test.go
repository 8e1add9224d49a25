package quiz

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/patente-app/backend/internal/corpus"
	"github.com/patente-app/backend/internal/database/dbtest"
	"github.com/patente-app/backend/internal/models"
	"github.com/patente-app/backend/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedQuestions(t *testing.T, db *sqlx.DB) (*corpus.Store, []int64) {
	t.Helper()
	ctx := context.Background()
	store := corpus.NewStore(db)
	tr, err := store.CreateTranslation(ctx, models.Translation{TextIT: "semaforo", TextEN: "traffic light", TextFA: "cheragh"})
	require.NoError(t, err)

	rows := []models.Question{
		{Text: "Il semaforo rosso impone l'arresto", Answer: models.AnswerTrue, ParentNumber: 1, QuestionNumber: 1},
		{Text: "Il 50% dei veicoli può sorpassare", Answer: models.AnswerTrue, ParentNumber: 1, QuestionNumber: 2},
		{Text: "Il limite in autostrada è 50", Answer: models.AnswerFalse, ParentNumber: 2, QuestionNumber: 1},
	}
	var ids []int64
	for _, q := range rows {
		created, err := store.CreateQuestion(ctx, q)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	require.NoError(t, store.SetTranslationIDs(ctx, ids[0], models.IDSet{tr.ID}))
	return store, ids
}

func TestSubmitQuizPersists(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	items, ids := seedQuestions(t, db)
	user := dbtest.CreateUser(t, db, "mario@example.com")
	svc := NewService(items, NewStore(db), selection.NewSeededPicker(1, 2))

	res, err := svc.SubmitQuiz(ctx, user, ids, []string{"V", "F"})
	require.NoError(t, err)
	assert.Equal(t, models.QuizResult{Total: 3, Answered: 2, Correct: 1, Wrong: 1, Score: 33.33}, *res)

	_, err = svc.SubmitQuiz(ctx, user, ids[:1], []string{"F"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	for _, st := range stats {
		assert.Equal(t, st.Correct+st.Wrong, st.Attempts, "question %d", st.QuestionID)
		assert.NotNil(t, st.LastAttemptAt)
	}
	assert.Equal(t, ids[0], stats[0].QuestionID)
	assert.Equal(t, 1, stats[0].Correct)
	assert.Equal(t, 1, stats[0].Wrong)

	agg, err := svc.Progress(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionAggregate{TotalQuestions: 3, AnsweredCorrectly: 1, Percentage: 33.33}, agg)
}

func TestSubmitQuizUnknownQuestionWritesNothing(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	items, ids := seedQuestions(t, db)
	user := dbtest.CreateUser(t, db, "luigi@example.com")
	svc := NewService(items, NewStore(db), nil)

	_, err := svc.SubmitQuiz(ctx, user, []int64{ids[0], 9999}, []string{"V", "V"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	stats, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestEligibleQuestionFilters(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	items, ids := seedQuestions(t, db)
	user := dbtest.CreateUser(t, db, "anna@example.com")
	other := dbtest.CreateUser(t, db, "bruno@example.com")
	store := NewStore(db)
	svc := NewService(items, store, nil)

	_, err := svc.SubmitQuiz(ctx, user, ids[:2], []string{"V", "F"})
	require.NoError(t, err)

	tests := []struct {
		user   int64
		filter models.StatsFilter
		want   []int64
	}{
		{user, models.FilterAll, ids},
		{user, models.FilterCorrect, ids[:1]},
		{user, models.FilterWrong, ids[1:2]},
		{user, models.FilterNeverAnswered, ids[2:]},
		{other, models.FilterNeverAnswered, ids},
		{other, models.FilterWrong, []int64{}},
	}
	for _, tt := range tests {
		got, err := store.ListEligibleQuestionIDs(ctx, tt.user, tt.filter)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "user %d filter %q", tt.user, tt.filter)
	}
}

func TestListQuestionsWithStats(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	items, ids := seedQuestions(t, db)
	user := dbtest.CreateUser(t, db, "carla@example.com")
	svc := NewService(items, NewStore(db), nil)

	_, err := svc.SubmitQuiz(ctx, user, ids[:1], []string{"F"})
	require.NoError(t, err)

	page, err := svc.ListQuestions(ctx, user, models.QuestionListRequest{PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.LastPage)
	require.Len(t, page.Questions, 2)
	assert.Equal(t, 1, page.Questions[0].WrongCount)
	assert.Equal(t, 0, page.Questions[1].WrongCount)

	// The literal percent sign must not act as a wildcard.
	found, err := svc.ListQuestions(ctx, user, models.QuestionListRequest{Search: "50%"})
	require.NoError(t, err)
	require.Len(t, found.Questions, 1)
	assert.Equal(t, ids[1], found.Questions[0].ID)

	wrong, err := svc.ListQuestions(ctx, user, models.QuestionListRequest{Filter: models.FilterWrong, Search: "SEMAFORO"})
	require.NoError(t, err)
	assert.Equal(t, 1, wrong.Total)

	one, err := svc.GetQuestion(ctx, user, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, one.WrongCount)
	assert.NotNil(t, one.LastAttempted)

	_, err = svc.GetQuestion(ctx, user, 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGenerateQuizFromDatabase(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	items, ids := seedQuestions(t, db)
	user := dbtest.CreateUser(t, db, "dario@example.com")
	svc := NewService(items, NewStore(db), nil)

	got, err := svc.GenerateQuiz(ctx, user, 30, models.FilterAll)
	require.NoError(t, err)
	require.Len(t, got, 3)

	seen := map[int64]bool{}
	for _, q := range got {
		assert.False(t, seen[q.ID], "duplicate question %d", q.ID)
		seen[q.ID] = true
		if q.ID == ids[0] {
			require.Len(t, q.Translations, 1)
			assert.Equal(t, "semaforo", q.Translations[0].TextIT)
		}
	}
}
