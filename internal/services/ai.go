package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrTranscriptRequired     = errors.New("transcript is required")
	ErrAIUnparseable          = errors.New("could not parse the task from the AI response")
)

// ChatCompleter is the part of the OpenAI client the drafting service uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AIConfig selects the OpenAI-compatible endpoint.
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// AIService turns a spoken transcript into a task draft.
type AIService struct {
	client    ChatCompleter
	model     string
	boardRepo repository.BoardRepository
	now       func() time.Time
}

// TaskDraft is a task proposed by the AI. The client confirms it through the
// normal create endpoint.
type TaskDraft struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Priority      models.Priority `json:"priority"`
	Deadline      *time.Time      `json:"deadline"`
	Subtasks      []string        `json:"subtasks"`
	AssigneeIDs   []string        `json:"assignee_ids"`
	ReviewerID    string          `json:"reviewer_id"`
	RewardPoints  int64           `json:"reward_points"`
	PenaltyPoints int64           `json:"penalty_points"`
}

// aiTaskResponse is the JSON shape the model is asked to produce.
type aiTaskResponse struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Priority        string   `json:"priority"`
	Deadline        *string  `json:"deadline"`
	Subtasks        []string `json:"subtasks"`
	AssignedMembers []string `json:"assignedMembers"`
	ReviewerID      *string  `json:"reviewerId"`
	Success         *bool    `json:"success"`
	Error           *string  `json:"error"`
}

// NewAIService creates an AIService. Without an API key the service reports
// ErrAIServiceNotConfigured.
func NewAIService(cfg AIConfig, boardRepo repository.BoardRepository) *AIService {
	s := &AIService{
		model:     cfg.Model,
		boardRepo: boardRepo,
		now:       time.Now,
	}
	if s.model == "" {
		s.model = openai.GPT4oMini
	}
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		s.client = openai.NewClientWithConfig(clientConfig)
	}
	return s
}

// NewAIServiceWithClient creates an AIService around an existing client.
func NewAIServiceWithClient(client ChatCompleter, model string, boardRepo repository.BoardRepository) *AIService {
	return &AIService{client: client, model: model, boardRepo: boardRepo, now: time.Now}
}

// DraftTask asks the model to extract a task from the transcript.
func (s *AIService) DraftTask(ctx context.Context, boardID, transcript string) (*TaskDraft, error) {
	if s.client == nil {
		return nil, ErrAIServiceNotConfigured
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrTranscriptRequired
	}

	members, err := s.boardRepo.ListMembers(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board members: %w", err)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildDraftPrompt(transcript, members, s.now()),
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrAIUnparseable
	}

	parsed, err := parseDraftResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return buildDraft(parsed, members, s.now()), nil
}

func buildDraftPrompt(transcript string, members []models.BoardMember, now time.Time) string {
	var roster strings.Builder
	for _, m := range members {
		fmt.Fprintf(&roster, "- id: %s, nombre: %s\n", m.UserID, m.User.Name)
	}

	return fmt.Sprintf(`Eres un asistente que convierte texto de voz a datos estructurados de tareas.

Fecha actual: %s

Miembros del tablero:
%s
Texto de voz del usuario: %q

Analiza el texto y extrae la información de la tarea. Devuelve SOLO un JSON válido en este formato exacto:
{
    "title": "Título de la tarea",
    "description": "Descripción detallada de la tarea",
    "priority": "alta|media|baja",
    "deadline": null,
    "subtasks": [],
    "assignedMembers": [],
    "reviewerId": null,
    "success": true,
    "error": null
}

INSTRUCCIONES:
1. Responde SOLO con el JSON, sin markdown
2. Si el usuario menciona una fecha límite, conviértela a "yyyy-MM-dd" en deadline; si no, usa null
3. Si el usuario menciona prioridad, usa "alta", "media" o "baja"
4. En assignedMembers y reviewerId usa solo ids de la lista de miembros
5. Si no hay subtareas, usa []
6. El título es OBLIGATORIO`, now.Format("2006-01-02"), roster.String(), transcript)
}

// cleanJSON strips markdown fences and any prose around the first JSON object.
func cleanJSON(content string) string {
	cleaned := strings.ReplaceAll(content, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}

func parseDraftResponse(content string) (*aiTaskResponse, error) {
	var parsed aiTaskResponse
	if err := json.Unmarshal([]byte(cleanJSON(content)), &parsed); err != nil {
		return nil, ErrAIUnparseable
	}
	if parsed.Success != nil && !*parsed.Success {
		return nil, ErrAIUnparseable
	}
	if strings.TrimSpace(parsed.Title) == "" {
		return nil, ErrAIUnparseable
	}
	return &parsed, nil
}

// buildDraft keeps only known members, clears a reviewer who is also assigned,
// and fills in the default points for the priority.
func buildDraft(parsed *aiTaskResponse, members []models.BoardMember, now time.Time) *TaskDraft {
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.UserID] = struct{}{}
	}

	draft := &TaskDraft{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Priority:    parsePriority(parsed.Priority),
		Subtasks:    cleanSubtasks(parsed.Subtasks),
		AssigneeIDs: []string{},
	}
	if parsed.Deadline != nil {
		draft.Deadline = parseDeadline(*parsed.Deadline, now.Location())
	}

	for _, id := range uniqueStrings(parsed.AssignedMembers) {
		if _, ok := known[id]; ok {
			draft.AssigneeIDs = append(draft.AssigneeIDs, id)
		}
	}

	if parsed.ReviewerID != nil {
		if _, ok := known[*parsed.ReviewerID]; ok {
			draft.ReviewerID = *parsed.ReviewerID
		}
	}
	for _, id := range draft.AssigneeIDs {
		if id == draft.ReviewerID {
			draft.ReviewerID = ""
			break
		}
	}

	draft.RewardPoints, draft.PenaltyPoints = DefaultPoints(draft.Priority)
	return draft
}

func parsePriority(raw string) models.Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "alta", "high":
		return models.PriorityHigh
	case "baja", "low":
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

var deadlineLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

func parseDeadline(raw string, loc *time.Location) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t
		}
	}
	return nil
}
