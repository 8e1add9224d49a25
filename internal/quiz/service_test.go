package quiz

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/patente-app/backend/internal/models"
	"github.com/patente-app/backend/internal/scoring"
	"github.com/patente-app/backend/internal/selection"
)

// ── Fakes ───────────────────────────────────────────────

type fakeItems struct {
	questions    map[int64]models.Question
	translations map[int64]models.Translation
}

func (f *fakeItems) CountQuestions(ctx context.Context) (int, error) {
	return len(f.questions), nil
}

func (f *fakeItems) GetQuestionsByIDs(ctx context.Context, ids []int64) ([]models.Question, error) {
	var out []models.Question
	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeItems) GetTranslationsByIDs(ctx context.Context, ids []int64) ([]models.Translation, error) {
	var out []models.Translation
	for _, id := range ids {
		if t, ok := f.translations[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type statKey struct{ user, question int64 }

// fakeProgress stages writes during InTx and publishes them only on success.
type fakeProgress struct {
	items     *fakeItems
	stats     map[statKey]models.QuestionStat
	failAfter int // fail the Nth SaveStat of a transaction when > 0
	nextID    int64
}

func newFakeProgress(items *fakeItems) *fakeProgress {
	return &fakeProgress{items: items, stats: map[statKey]models.QuestionStat{}}
}

func (f *fakeProgress) ListEligibleQuestionIDs(ctx context.Context, userID int64, filter models.StatsFilter) ([]int64, error) {
	var ids []int64
	for id := range f.items.questions {
		var stat *models.QuestionStat
		if st, ok := f.stats[statKey{userID, id}]; ok {
			stat = &st
		}
		if scoring.QuestionEligible(stat, filter) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeProgress) CountCorrectlyAnswered(ctx context.Context, userID int64) (int, error) {
	n := 0
	for k, st := range f.stats {
		if k.user == userID && st.Correct > 0 {
			n++
		}
	}
	return n, nil
}

func (f *fakeProgress) ListQuestionsWithStats(ctx context.Context, userID int64, req models.QuestionListRequest) ([]models.QuestionWithStats, int, error) {
	return nil, 0, nil
}

func (f *fakeProgress) GetQuestionWithStats(ctx context.Context, userID, questionID int64) (*models.QuestionWithStats, error) {
	q, ok := f.items.questions[questionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	st := f.stats[statKey{userID, questionID}]
	return &models.QuestionWithStats{Question: q, CorrectCount: st.Correct, WrongCount: st.Wrong}, nil
}

func (f *fakeProgress) ListStats(ctx context.Context, userID int64) ([]models.QuestionStat, error) {
	var out []models.QuestionStat
	for k, st := range f.stats {
		if k.user == userID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeProgress) InTx(ctx context.Context, fn func(StatsTx) error) error {
	staged := make(map[statKey]models.QuestionStat, len(f.stats))
	for k, v := range f.stats {
		staged[k] = v
	}
	tx := &fakeTx{parent: f, staged: staged}
	if err := fn(tx); err != nil {
		return err
	}
	f.stats = staged
	return nil
}

type fakeTx struct {
	parent *fakeProgress
	staged map[statKey]models.QuestionStat
	saves  int
}

var errInjected = errors.New("injected failure")

func (t *fakeTx) GetStat(ctx context.Context, userID, questionID int64) (*models.QuestionStat, error) {
	st, ok := t.staged[statKey{userID, questionID}]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (t *fakeTx) SaveStat(ctx context.Context, st models.QuestionStat) error {
	t.saves++
	if t.parent.failAfter > 0 && t.saves == t.parent.failAfter {
		return errInjected
	}
	if st.ID == 0 {
		t.parent.nextID++
		st.ID = t.parent.nextID
	}
	t.staged[statKey{st.UserID, st.QuestionID}] = st
	return nil
}

func newFixture() (*Service, *fakeItems, *fakeProgress) {
	items := &fakeItems{
		questions: map[int64]models.Question{
			1: {ID: 1, Text: "Il segnale indica una strada", Answer: "V", TranslationIDs: models.IDSet{10}},
			2: {ID: 2, Text: "Al semaforo rosso si passa", Answer: "V", TranslationIDs: models.IDSet{11, 10}},
			3: {ID: 3, Text: "Il limite è 50", Answer: "F"},
		},
		translations: map[int64]models.Translation{
			10: {ID: 10, TextIT: "strada", TextEN: "road", TextFA: "jadde"},
			11: {ID: 11, TextIT: "semaforo", TextEN: "traffic light", TextFA: "cheragh"},
		},
	}
	progress := newFakeProgress(items)
	return NewService(items, progress, selection.NewSeededPicker(7, 7)), items, progress
}

// ── Submission ──────────────────────────────────────────

func TestSubmitQuizScenario(t *testing.T) {
	svc, _, progress := newFixture()
	ctx := context.Background()

	got, err := svc.SubmitQuiz(ctx, 1, []int64{1, 2, 3}, []string{"V", "F"})
	if err != nil {
		t.Fatalf("SubmitQuiz error: %v", err)
	}
	want := models.QuizResult{Total: 3, Answered: 2, Correct: 1, Wrong: 1, Score: 33.33}
	if *got != want {
		t.Errorf("SubmitQuiz = %+v, want %+v", *got, want)
	}

	if st := progress.stats[statKey{1, 1}]; st.Correct != 1 || st.Attempts != 1 {
		t.Errorf("stat q1 = %+v, want correct=1 attempts=1", st)
	}
	if st := progress.stats[statKey{1, 2}]; st.Wrong != 1 || st.Attempts != 1 {
		t.Errorf("stat q2 = %+v, want wrong=1 attempts=1", st)
	}
	if _, ok := progress.stats[statKey{1, 3}]; ok {
		t.Error("unanswered q3 has a stat record, want none")
	}
}

func TestSubmitQuizAccumulates(t *testing.T) {
	svc, _, progress := newFixture()
	ctx := context.Background()

	for _, a := range []string{"v", "F", "V"} {
		if _, err := svc.SubmitQuiz(ctx, 1, []int64{1}, []string{a}); err != nil {
			t.Fatal(err)
		}
	}
	st := progress.stats[statKey{1, 1}]
	if st.Correct != 2 || st.Wrong != 1 || st.Attempts != 3 {
		t.Errorf("after three answers = %d/%d/%d, want 2/1/3", st.Correct, st.Wrong, st.Attempts)
	}
}

func TestSubmitQuizIsAtomic(t *testing.T) {
	svc, _, progress := newFixture()
	progress.failAfter = 2

	_, err := svc.SubmitQuiz(context.Background(), 1, []int64{1, 2, 3}, []string{"V", "V", "F"})
	if !errors.Is(err, errInjected) {
		t.Fatalf("SubmitQuiz err = %v, want injected failure", err)
	}
	if len(progress.stats) != 0 {
		t.Errorf("partial counters persisted: %v", progress.stats)
	}
}

func TestSubmitQuizRejects(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		ids     []int64
		answers []string
		want    error
	}{
		{"empty batch", nil, nil, models.ErrInvalidArgument},
		{"too many answers", []int64{1}, []string{"V", "F"}, models.ErrInvalidArgument},
		{"unknown question", []int64{1, 99}, []string{"V", "V"}, models.ErrNotFound},
	}
	for _, tt := range tests {
		_, err := svc.SubmitQuiz(ctx, 1, tt.ids, tt.answers)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

// ── Generation ──────────────────────────────────────────

func TestGenerateQuizEnrichesTranslations(t *testing.T) {
	svc, _, _ := newFixture()

	got, err := svc.GenerateQuiz(context.Background(), 1, 10, models.FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("GenerateQuiz len = %d, want 3", len(got))
	}
	for _, q := range got {
		switch q.ID {
		case 1:
			if len(q.Translations) != 1 || q.Translations[0].ID != 10 {
				t.Errorf("q1 translations = %v, want [10]", q.Translations)
			}
		case 2:
			if len(q.Translations) != 2 || q.Translations[0].ID != 10 || q.Translations[1].ID != 11 {
				t.Errorf("q2 translations = %v, want [10 11]", q.Translations)
			}
		case 3:
			if q.Translations == nil || len(q.Translations) != 0 {
				t.Errorf("q3 translations = %v, want empty non-nil", q.Translations)
			}
		}
	}
}

func TestGenerateQuizTruncates(t *testing.T) {
	svc, _, _ := newFixture()
	got, err := svc.GenerateQuiz(context.Background(), 1, 2, models.FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID == got[1].ID {
		t.Errorf("GenerateQuiz(count=2) = %v, want two distinct questions", got)
	}
}

func TestGenerateQuizNeverAnswered(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	if _, err := svc.SubmitQuiz(ctx, 1, []int64{1, 3}, []string{"F", "F"}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		got, err := svc.GenerateQuiz(ctx, 1, 30, models.FilterNeverAnswered)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != 2 {
			t.Fatalf("GenerateQuiz(never_answered) = %v, want only question 2", got)
		}
	}

	// Another user's history does not leak.
	other, err := svc.GenerateQuiz(ctx, 2, 30, models.FilterNeverAnswered)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 3 {
		t.Errorf("GenerateQuiz(user 2, never_answered) len = %d, want 3", len(other))
	}
}

func TestGenerateQuizWrong(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	if _, err := svc.SubmitQuiz(ctx, 1, []int64{1, 2}, []string{"F", "V"}); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GenerateQuiz(ctx, 1, 30, models.FilterWrong)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("GenerateQuiz(wrong) = %v, want only question 1", got)
	}
}

func TestGenerateQuizNoEligible(t *testing.T) {
	svc, _, _ := newFixture()
	got, err := svc.GenerateQuiz(context.Background(), 1, 30, models.FilterWrong)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("GenerateQuiz with nothing eligible = %v, want empty slice", got)
	}
}

// ── Progress ────────────────────────────────────────────

func TestProgressIgnoresWrongAnswers(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.SubmitQuiz(ctx, 1, []int64{1}, []string{"F"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.SubmitQuiz(ctx, 1, []int64{1, 2}, []string{"V", "F"}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Progress(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.AnsweredCorrectly != 1 || got.TotalQuestions != 3 || got.Percentage != 33.33 {
		t.Errorf("Progress = %+v, want 1 of 3 at 33.33", got)
	}
}

func TestLastPage(t *testing.T) {
	tests := []struct{ total, per, want int }{
		{0, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 10, 10},
	}
	for _, tt := range tests {
		if got := lastPage(tt.total, tt.per); got != tt.want {
			t.Errorf("lastPage(%d, %d) = %d, want %d", tt.total, tt.per, got, tt.want)
		}
	}
}
