package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"github.com/wemake-app/wemake-api/internal/models"
)

type fakeChat struct {
	content string
	err     error
	last    openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content}},
		},
	}, nil
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"title":"a"}`, want: `{"title":"a"}`},
		{name: "fenced", in: "```json\n{\"title\":\"a\"}\n```", want: `{"title":"a"}`},
		{name: "bare fence", in: "```\n{\"title\":\"a\"}\n```", want: `{"title":"a"}`},
		{name: "prose around", in: "Claro, aquí está:\n{\"title\":\"a\",\"x\":{\"y\":1}}\n¡Listo!", want: `{"title":"a","x":{"y":1}}`},
		{name: "no object", in: "lo siento", want: "lo siento"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestParseDraftResponse(t *testing.T) {
	_, err := parseDraftResponse(`{"title":"  ","success":true}`)
	require.ErrorIs(t, err, ErrAIUnparseable)

	_, err = parseDraftResponse(`{"title":"Algo","success":false,"error":"no entendí"}`)
	require.ErrorIs(t, err, ErrAIUnparseable)

	_, err = parseDraftResponse(`not json`)
	require.ErrorIs(t, err, ErrAIUnparseable)

	parsed, err := parseDraftResponse("```json\n{\"title\":\"Comprar pan\",\"priority\":\"alta\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "Comprar pan", parsed.Title)
}

func TestParseDeadline(t *testing.T) {
	loc := time.FixedZone("PET", -5*3600)

	tests := []struct {
		in   string
		want *time.Time
	}{
		{in: "2026-03-12", want: ptrTime(time.Date(2026, 3, 12, 0, 0, 0, 0, loc))},
		{in: "2026-03-12T18:30:00", want: ptrTime(time.Date(2026, 3, 12, 18, 30, 0, 0, loc))},
		{in: "2026-03-12 18:30:00", want: ptrTime(time.Date(2026, 3, 12, 18, 30, 0, 0, loc))},
		{in: "2026-03-12T18:30:00Z", want: ptrTime(time.Date(2026, 3, 12, 18, 30, 0, 0, time.UTC))},
		{in: "null", want: nil},
		{in: "next friday", want: nil},
	}

	for _, tt := range tests {
		got := parseDeadline(tt.in, loc)
		if tt.want == nil {
			require.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		require.True(t, tt.want.Equal(*got), tt.in)
	}
}

func TestAIService_DraftTask(t *testing.T) {
	env := newServiceEnv(t)
	f := env.newBoard(t)

	chat := &fakeChat{content: "Aquí tienes:\n```json\n{" +
		`"title":"Limpiar garaje","description":"Ordenar herramientas","priority":"alta",` +
		`"deadline":"2026-03-14","subtasks":["Barrer",""],` +
		`"assignedMembers":["` + f.worker.ID + `","ghost","` + f.reviewer.ID + `"],` +
		`"reviewerId":"` + f.reviewer.ID + `","success":true,"error":null}` + "\n```"}
	svc := NewAIServiceWithClient(chat, "test-model", env.boards)
	svc.now = func() time.Time { return env.now }

	draft, err := svc.DraftTask(context.Background(), f.board.ID, "limpiar el garaje el sábado, urgente")
	require.NoError(t, err)

	require.Equal(t, "Limpiar garaje", draft.Title)
	require.Equal(t, models.PriorityHigh, draft.Priority)
	require.Equal(t, []string{"Barrer"}, draft.Subtasks)
	require.Equal(t, []string{f.worker.ID, f.reviewer.ID}, draft.AssigneeIDs)
	require.Empty(t, draft.ReviewerID)
	require.Equal(t, int64(100), draft.RewardPoints)
	require.Equal(t, int64(20), draft.PenaltyPoints)
	require.NotNil(t, draft.Deadline)
	require.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *draft.Deadline)

	require.Equal(t, "test-model", chat.last.Model)
	prompt := chat.last.Messages[0].Content
	require.Contains(t, prompt, "2026-03-10")
	require.Contains(t, prompt, f.worker.ID)
	require.Contains(t, prompt, "assignedMembers")
}

func TestAIService_DraftTaskErrors(t *testing.T) {
	env := newServiceEnv(t)
	f := env.newBoard(t)
	ctx := context.Background()

	unconfigured := NewAIService(AIConfig{}, env.boards)
	_, err := unconfigured.DraftTask(ctx, f.board.ID, "algo")
	require.ErrorIs(t, err, ErrAIServiceNotConfigured)

	svc := NewAIServiceWithClient(&fakeChat{content: `{"description":"sin título"}`}, "m", env.boards)
	_, err = svc.DraftTask(ctx, f.board.ID, " ")
	require.ErrorIs(t, err, ErrTranscriptRequired)

	_, err = svc.DraftTask(ctx, f.board.ID, "algo")
	require.ErrorIs(t, err, ErrAIUnparseable)

	failing := NewAIServiceWithClient(&fakeChat{err: errors.New("timeout")}, "m", env.boards)
	_, err = failing.DraftTask(ctx, f.board.ID, "algo")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAIUnparseable)
}

func TestParsePriority(t *testing.T) {
	require.Equal(t, models.PriorityHigh, parsePriority("Alta"))
	require.Equal(t, models.PriorityLow, parsePriority("baja"))
	require.Equal(t, models.PriorityLow, parsePriority("LOW"))
	require.Equal(t, models.PriorityMedium, parsePriority("media"))
	require.Equal(t, models.PriorityMedium, parsePriority(""))
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
