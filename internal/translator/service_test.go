package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/patente-app/backend/internal/corpus"
	"github.com/patente-app/backend/internal/database/dbtest"
	"github.com/patente-app/backend/internal/httpx"
	"github.com/patente-app/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyClient struct {
	fail map[string]bool
}

func (f *flakyClient) Complete(ctx context.Context, system, prompt string) (*LLMResponse, error) {
	src := sourceText(prompt)
	if f.fail[src] {
		return nil, errors.New("model unavailable")
	}
	return &LLMResponse{Content: ` "ترجمه ` + src + `" `}, nil
}

func TestTranslateMissing(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	store := corpus.NewStore(db)

	done := "già tradotto"
	texts := []string{"Il segnale di stop", "Divieto di sosta", "Strada con diritto di precedenza"}
	for i, text := range texts {
		q := models.Question{Text: text, Answer: models.AnswerTrue, ParentNumber: 1, QuestionNumber: i + 1}
		_, err := store.CreateQuestion(ctx, q)
		require.NoError(t, err)
	}
	_, err := store.CreateQuestion(ctx, models.Question{Text: "Già fatto", TextFa: &done, Answer: models.AnswerFalse, ParentNumber: 2, QuestionNumber: 1})
	require.NoError(t, err)

	svc := NewService(store, &flakyClient{fail: map[string]bool{"Divieto di sosta": true}}, "test")
	report, err := svc.TranslateMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TranslateReport{Processed: 2, Errors: 1, TotalAttempted: 3}, *report)

	left, err := store.ListQuestionsMissingFarsi(ctx, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Divieto di sosta", left[0].Text)

	q, err := store.GetQuestion(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, q.TextFa)
	assert.Equal(t, "ترجمه Il segnale di stop", *q.TextFa)
}

func TestCleanCompletion(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  سلام  ", "سلام"},
		{`"سلام"`, "سلام"},
		{"«سلام»\n", "سلام"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := cleanCompletion(tt.in); got != tt.want {
			t.Errorf("cleanCompletion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMockClientEchoesSource(t *testing.T) {
	resp, err := NewMockClient().Complete(context.Background(), systemPrompt, buildPrompt("Senso unico"))
	require.NoError(t, err)
	assert.Equal(t, "[fa] Senso unico", resp.Content)
}

func TestOllamaClient(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"llama3","response":"تابلو توقف","done":true,"prompt_eval_count":12,"eval_count":5}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", "llama3")
	c.policy = httpx.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	resp, err := c.Complete(context.Background(), systemPrompt, buildPrompt("Segnale di stop"))
	require.NoError(t, err)
	assert.Equal(t, "تابلو توقف", resp.Content)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 5, resp.OutputTokens)
	assert.Equal(t, "llama3", got["model"])
	assert.Equal(t, false, got["stream"])
}

func TestOllamaClientEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done":true}`))
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "llama3").Complete(context.Background(), "", "x")
	assert.Error(t, err)
}
