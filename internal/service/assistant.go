package service

import (
	"KnowBase/internal/llm"
	"KnowBase/internal/model"
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// EmptyCorpusPlaceholder подставляется в контекст, когда карточек нет.
const EmptyCorpusPlaceholder = "No cards found."

// assistantInstruction — фиксированная часть системного сообщения. Корпус добавляется после неё.
const assistantInstruction = `You are a technical assistant that helps employees find solutions to problems.
You have access to a knowledge base with the following solution cards:

%CONTEXT%

Your task:
1. Understand the user's problem
2. Find the most relevant card in the knowledge base
3. Summarize the solution clearly and directly
4. Mention the card title and category

Be direct and helpful. If there is no exact solution, suggest the closest one and explain why.`

// Stage — этап обработки вопроса.
type Stage string

const (
	StageReceived      Stage = "received"
	StageCorpusFetched Stage = "corpus_fetched"
	StageContextBuilt  Stage = "context_built"
	StageModelCalled   Stage = "model_called"
	StageResponded     Stage = "responded"
)

var assistantRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kb_assistant_requests_total",
		Help: "Запросы к ассистенту по исходу и этапу, на котором он наступил",
	},
	[]string{"outcome", "stage"},
)

// CardLister — источник корпуса карточек.
type CardLister interface {
	List(ctx context.Context) ([]model.Card, error)
}

// ChatCompleter — клиент модели.
type ChatCompleter interface {
	Configured() bool
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// AssistantService отвечает на вопрос, подставляя весь корпус карточек в контекст модели.
// Состояния между запросами не хранит.
type AssistantService struct {
	cards  CardLister
	model  ChatCompleter
	logger *zap.SugaredLogger
}

// NewAssistantService создаёт ассистента.
func NewAssistantService(cards CardLister, chat ChatCompleter, logger *zap.SugaredLogger) *AssistantService {
	return &AssistantService{cards: cards, model: chat, logger: logger}
}

// Ask проходит Received → CorpusFetched → ContextBuilt → ModelCalled → Responded.
// Ошибка на любом этапе логируется и учитывается в метрике вместе с этапом.
func (s *AssistantService) Ask(ctx context.Context, question string) (string, error) {
	stage := StageReceived
	fail := func(err error) (string, error) {
		s.logger.Errorw("assistant failed", "stage", stage, "error", err)
		assistantRequests.WithLabelValues("failed", string(stage)).Inc()
		return "", err
	}

	if s.model == nil || !s.model.Configured() {
		return fail(&ConfigurationError{Setting: "LLM_API_KEY"})
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return fail(&ValidationError{Field: "message", Reason: "required"})
	}

	cards, err := s.cards.List(ctx)
	if err != nil {
		var ue *UpstreamError
		if !errors.As(err, &ue) {
			err = &UpstreamError{Op: "card list", Err: err}
		}
		return fail(err)
	}
	stage = StageCorpusFetched
	s.logger.Debugw("assistant corpus fetched", "cards", len(cards))

	system := SystemPrompt(BuildContext(cards))
	stage = StageContextBuilt

	answer, err := s.model.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: question},
	})
	if err != nil {
		return fail(upstreamFromModel(err))
	}
	stage = StageModelCalled
	s.logger.Debugw("assistant model answered", "stage", stage, "chars", len(answer))

	stage = StageResponded
	assistantRequests.WithLabelValues("ok", string(stage)).Inc()
	return answer, nil
}

// BuildContext сериализует корпус в блоки "Title/Category/Description", разделённые пустой строкой.
// Порядок блоков совпадает с порядком карточек. Усечения нет: весь корпус идёт в контекст.
func BuildContext(cards []model.Card) string {
	if len(cards) == 0 {
		return EmptyCorpusPlaceholder
	}
	blocks := make([]string, 0, len(cards))
	for _, c := range cards {
		blocks = append(blocks, "Title: "+c.Title+"\nCategory: "+string(c.Category)+"\nDescription: "+c.Description)
	}
	return strings.Join(blocks, "\n\n")
}

// SystemPrompt подставляет контекст в фиксированную инструкцию.
func SystemPrompt(corpus string) string {
	return strings.Replace(assistantInstruction, "%CONTEXT%", corpus, 1)
}

func upstreamFromModel(err error) error {
	var se *llm.StatusError
	if errors.As(err, &se) {
		return &UpstreamError{Op: "model call", Status: se.Status, Body: se.Body, Err: err}
	}
	return &UpstreamError{Op: "model call", Err: err}
}
