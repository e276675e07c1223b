package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"realty_chat/internal/config"
	"realty_chat/internal/domain"
	"realty_chat/internal/metrics"
	"realty_chat/internal/repository"
	apperrors "realty_chat/pkg/errors"
	"realty_chat/pkg/logger"
)

// Responder - внешний ассистент (LLM)
type Responder interface {
	Respond(ctx context.Context, history []domain.ConversationTurn, text, locale string) (string, error)
}

// EventPublisher - шина событий сессии. nil означает, что push отключен.
type EventPublisher interface {
	PublishSessionEvent(event *domain.SessionEvent) error
}

type StartSessionInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Locale string `json:"locale"`
}

type VisitorMessageResult struct {
	Message       *domain.ChatMessage `json:"message"`
	Reply         *domain.ChatMessage `json:"reply,omitempty"`
	RoutedToHuman bool                `json:"routed_to_human"`
	Status        string              `json:"status"`
}

type ChatService interface {
	StartSession(ctx context.Context, input StartSessionInput) (*domain.ChatSession, error)
	HandleVisitorMessage(ctx context.Context, sessionID uuid.UUID, text, locale string) (*VisitorMessageResult, error)
	OperatorReply(ctx context.Context, sessionID, operatorID uuid.UUID, operatorName, text string) (*domain.ChatMessage, error)
	SetTyping(ctx context.Context, sessionID uuid.UUID, isTyping bool) error
	EndChat(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error)
	GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error)
	ListSessions(ctx context.Context, status string, limit, offset int) ([]*domain.SessionSummary, error)
	MarkRead(ctx context.Context, sessionID, operatorID uuid.UUID) (*domain.ChatSession, error)
}

type chatService struct {
	chatRepo         repository.ChatRepository
	listingRepo      repository.ListingRepository
	typingRepo       repository.TypingRepository
	audit            AuditService
	responder        Responder
	publisher        EventPublisher
	cfg              config.ChatConfig
	responderTimeout time.Duration
	log              logger.Logger
}

func NewChatService(
	chatRepo repository.ChatRepository,
	listingRepo repository.ListingRepository,
	typingRepo repository.TypingRepository,
	audit AuditService,
	responder Responder,
	publisher EventPublisher,
	cfg *config.Config,
	log logger.Logger,
) ChatService {
	return &chatService{
		chatRepo:         chatRepo,
		listingRepo:      listingRepo,
		typingRepo:       typingRepo,
		audit:            audit,
		responder:        responder,
		publisher:        publisher,
		cfg:              cfg.Chat,
		responderTimeout: cfg.LLM.Timeout,
		log:              log,
	}
}

func (s *chatService) StartSession(ctx context.Context, input StartSessionInput) (*domain.ChatSession, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := strings.TrimSpace(input.Phone)

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperrors.ErrBadRequest)
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("%w: name is too long (max 100 characters)", apperrors.ErrBadRequest)
	}
	if email != "" && (!strings.Contains(email, "@") || len(email) > 255) {
		return nil, fmt.Errorf("%w: invalid email format", apperrors.ErrBadRequest)
	}
	if len(phone) > 32 {
		return nil, fmt.Errorf("%w: phone is too long", apperrors.ErrBadRequest)
	}

	session := &domain.ChatSession{
		ID:           uuid.New(),
		VisitorName:  name,
		VisitorEmail: email,
		VisitorPhone: phone,
		Locale:       normalizeLocale(input.Locale, s.cfg.DefaultLocale),
		Status:       domain.SessionStatusBot,
		IsRead:       true,
	}

	if err := s.chatRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	greeting := s.botMessage(session.ID, greetingText(session.Locale, name, s.cfg.AssistantName), nil)
	if err := s.chatRepo.CreateMessage(ctx, greeting); err != nil {
		return nil, err
	}

	s.logEvent(ctx, nil, domain.ActorRoleVisitor, session.ID, domain.EventTypeSessionStarted, map[string]interface{}{
		"locale": session.Locale,
	})
	s.publishStatus(session.ID, session.Status)

	s.log.Info("Chat session started", "session_id", session.ID, "locale", session.Locale)

	return session, nil
}

func (s *chatService) HandleVisitorMessage(ctx context.Context, sessionID uuid.UUID, text, locale string) (*VisitorMessageResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	locale = normalizeLocale(locale, session.Locale)

	// Сообщение посетителя сохраняется до любых внешних вызовов
	message := &domain.ChatMessage{
		SessionID: sessionID,
		Sender:    domain.SenderUser,
		Text:      text,
	}
	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	s.publishMessage(message)

	if session.IsLive() {
		metrics.VisitorMessagesTotal.WithLabelValues(metrics.RouteHuman).Inc()

		unread := false
		if _, err := s.chatRepo.UpdateSession(ctx, sessionID, repository.SessionUpdate{IsRead: &unread}); err != nil {
			return nil, err
		}

		return &VisitorMessageResult{
			Message:       message,
			RoutedToHuman: true,
			Status:        session.Status,
		}, nil
	}

	metrics.VisitorMessagesTotal.WithLabelValues(metrics.RouteBot).Inc()

	reply, status, err := s.answer(ctx, session, message, locale)
	if err != nil {
		return nil, err
	}

	return &VisitorMessageResult{
		Message:       message,
		Reply:         reply,
		RoutedToHuman: false,
		Status:        status,
	}, nil
}

// answer получает ответ ассистента и сохраняет его. Ошибки ассистента и поиска
// превращаются в сообщение с извинением, наружу уходят только ошибки хранилища.
func (s *chatService) answer(ctx context.Context, session *domain.ChatSession, message *domain.ChatMessage, locale string) (*domain.ChatMessage, string, error) {
	tpl := templatesFor(locale)
	status := session.Status

	reply, handoff := s.generateReply(ctx, session.ID, message, locale)

	if handoff {
		unread := false
		waiting := domain.SessionStatusLiveWaiting
		bot := domain.SessionStatusBot
		_, err := s.chatRepo.UpdateSession(ctx, session.ID, repository.SessionUpdate{Status: &waiting, IsRead: &unread, ExpectStatus: &bot})
		switch {
		case errors.Is(err, apperrors.ErrStatusConflict):
			// Оператор подключился, пока ассистент отвечал: передача уже не нужна
			current, getErr := s.chatRepo.GetSession(ctx, session.ID)
			if getErr != nil {
				return nil, "", getErr
			}
			s.log.Info("Handoff skipped, session already live", "session_id", session.ID, "status", current.Status)
			return nil, current.Status, nil
		case err != nil:
			s.log.Error("Failed to hand off session", "error", err, "session_id", session.ID)
			reply = s.botMessage(session.ID, tpl.apology, nil)
		default:
			status = waiting
			metrics.HandoffsTotal.Inc()
			s.logEvent(ctx, nil, domain.ActorRoleBot, session.ID, domain.EventTypeHandoffRequested, nil)
			s.publishStatus(session.ID, status)
			s.log.Info("Session handed off to live support", "session_id", session.ID)
		}
	}

	if err := s.chatRepo.CreateMessage(ctx, reply); err != nil {
		return nil, "", err
	}
	s.publishMessage(reply)

	return reply, status, nil
}

// generateReply вызывает ассистента и интерпретирует ответ. Второй результат -
// запрошена передача оператору.
func (s *chatService) generateReply(ctx context.Context, sessionID uuid.UUID, message *domain.ChatMessage, locale string) (*domain.ChatMessage, bool) {
	tpl := templatesFor(locale)

	history, err := s.chatRepo.GetRecentMessages(ctx, sessionID, message.ID, s.cfg.HistoryWindow)
	if err != nil {
		s.log.Error("Failed to load chat history", "error", err, "session_id", sessionID)
		return s.botMessage(sessionID, tpl.apology, nil), false
	}

	callCtx := ctx
	if s.responderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.responderTimeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := s.responder.Respond(callCtx, toTurns(history), message.Text, locale)
	if err != nil {
		metrics.ObserveResponder(metrics.OutcomeError, started)
		s.log.Error("Responder call failed", "error", err, "session_id", sessionID)
		return s.botMessage(sessionID, tpl.apology, nil), false
	}

	out := parseResponderOutput(raw, s.cfg.HandoffToken)
	switch out.kind {
	case outputSearch:
		metrics.ObserveResponder(metrics.OutcomeSearch, started)
		return s.searchReply(ctx, sessionID, out.criteria, tpl), false

	case outputHandoff:
		metrics.ObserveResponder(metrics.OutcomeHandoff, started)
		return s.botMessage(sessionID, tpl.handoff, nil), true

	default:
		outcome := metrics.OutcomeText
		if out.malformed {
			outcome = metrics.OutcomeMalformed
			s.log.Warn("Malformed responder instruction, using as text", "session_id", sessionID)
		}
		if out.text == "" {
			outcome = metrics.OutcomeError
			metrics.ObserveResponder(outcome, started)
			return s.botMessage(sessionID, tpl.apology, nil), false
		}
		metrics.ObserveResponder(outcome, started)
		return s.botMessage(sessionID, out.text, nil), false
	}
}

func (s *chatService) searchReply(ctx context.Context, sessionID uuid.UUID, criteria domain.SearchCriteria, tpl chatTemplates) *domain.ChatMessage {
	listings, err := s.listingRepo.Search(ctx, criteria, 1)
	if err != nil {
		s.log.Error("Listing search failed", "error", err, "session_id", sessionID)
		return s.botMessage(sessionID, tpl.apology, nil)
	}

	if len(listings) == 0 {
		s.log.Debug("No listing matched", "session_id", sessionID, "query", criteria.Query)
		return s.botMessage(sessionID, tpl.notFound, nil)
	}

	return s.botMessage(sessionID, tpl.propertyFound, domain.NewPropertyCard(listings[0]))
}

func (s *chatService) OperatorReply(ctx context.Context, sessionID, operatorID uuid.UUID, operatorName, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	if _, err := s.chatRepo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	message := &domain.ChatMessage{
		SessionID: sessionID,
		Sender:    domain.SenderOperator,
		Text:      text,
	}
	if name := strings.TrimSpace(operatorName); name != "" {
		message.DisplayName = &name
	}
	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	// Ответ оператора переводит сессию в обслуживание человеком
	active := domain.SessionStatusLiveActive
	read := true
	if _, err := s.chatRepo.UpdateSession(ctx, sessionID, repository.SessionUpdate{Status: &active, IsRead: &read}); err != nil {
		return nil, err
	}

	if err := s.typingRepo.ClearTyping(ctx, sessionID); err != nil {
		s.log.Warn("Failed to clear typing indicator", "error", err, "session_id", sessionID)
	}

	metrics.OperatorRepliesTotal.Inc()
	s.logEvent(ctx, &operatorID, domain.ActorRoleOperator, sessionID, domain.EventTypeOperatorReplied, map[string]interface{}{
		"message_id": message.ID,
	})
	s.publishMessage(message)
	s.publishStatus(sessionID, active)

	return message, nil
}

func (s *chatService) SetTyping(ctx context.Context, sessionID uuid.UUID, isTyping bool) error {
	if _, err := s.chatRepo.GetSession(ctx, sessionID); err != nil {
		return err
	}

	var err error
	if isTyping {
		err = s.typingRepo.SetTyping(ctx, sessionID, s.cfg.TypingTTL)
	} else {
		err = s.typingRepo.ClearTyping(ctx, sessionID)
	}
	if err != nil {
		return err
	}

	s.publish(&domain.SessionEvent{
		Type:      domain.SessionEventTyping,
		SessionID: sessionID,
		IsTyping:  &isTyping,
		Ts:        time.Now(),
	})

	return nil
}

func (s *chatService) EndChat(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Сброс сразу при завершении: следующее сообщение снова обработает ассистент
	bot := domain.SessionStatusBot
	if _, err := s.chatRepo.UpdateSession(ctx, sessionID, repository.SessionUpdate{Status: &bot}); err != nil {
		return nil, err
	}

	if err := s.typingRepo.ClearTyping(ctx, sessionID); err != nil {
		s.log.Warn("Failed to clear typing indicator", "error", err, "session_id", sessionID)
	}

	s.logEvent(ctx, nil, domain.ActorRoleVisitor, sessionID, domain.EventTypeSessionEnded, map[string]interface{}{
		"previous_status": session.Status,
	})
	s.publishStatus(sessionID, bot)

	return s.GetSnapshot(ctx, sessionID)
}

func (s *chatService) GetSnapshot(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	typing, err := s.typingRepo.IsTyping(ctx, sessionID)
	if err != nil {
		// Индикатор второстепенен, опрос не должен падать из-за Redis
		s.log.Warn("Failed to read typing indicator", "error", err, "session_id", sessionID)
		typing = false
	}

	return &domain.Snapshot{
		SessionID:   session.ID,
		Status:      session.Status,
		IsRead:      session.IsRead,
		AdminTyping: typing,
		Messages:    messages,
	}, nil
}

func (s *chatService) ListSessions(ctx context.Context, status string, limit, offset int) ([]*domain.SessionSummary, error) {
	status = strings.TrimSpace(status)
	if status != "" && !domain.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrBadRequest, status)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.chatRepo.ListSessions(ctx, status, limit, offset)
}

func (s *chatService) MarkRead(ctx context.Context, sessionID, operatorID uuid.UUID) (*domain.ChatSession, error) {
	read := true
	session, err := s.chatRepo.UpdateSession(ctx, sessionID, repository.SessionUpdate{IsRead: &read})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, &operatorID, domain.ActorRoleOperator, sessionID, domain.EventTypeSessionRead, nil)

	return session, nil
}

func (s *chatService) botMessage(sessionID uuid.UUID, text string, card *domain.PropertyCard) *domain.ChatMessage {
	message := &domain.ChatMessage{
		SessionID: sessionID,
		Sender:    domain.SenderBot,
		Text:      text,
		Property:  card,
	}
	if s.cfg.AssistantName != "" {
		name := s.cfg.AssistantName
		message.DisplayName = &name
	}
	return message
}

func (s *chatService) logEvent(ctx context.Context, actorID *uuid.UUID, role string, sessionID uuid.UUID, eventType string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, actorID, role, &sessionID, eventType, payload); err != nil {
		s.log.Warn("Failed to write audit log", "error", err, "event_type", eventType, "session_id", sessionID)
	}
}

func (s *chatService) publishMessage(message *domain.ChatMessage) {
	s.publish(&domain.SessionEvent{
		Type:      domain.SessionEventMessage,
		SessionID: message.SessionID,
		Message:   message,
		Ts:        time.Now(),
	})
}

func (s *chatService) publishStatus(sessionID uuid.UUID, status string) {
	s.publish(&domain.SessionEvent{
		Type:      domain.SessionEventStatus,
		SessionID: sessionID,
		Status:    status,
		Ts:        time.Now(),
	})
}

func (s *chatService) publish(event *domain.SessionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSessionEvent(event); err != nil {
		s.log.Warn("Failed to publish session event", "error", err, "type", event.Type, "session_id", event.SessionID)
	}
}

func toTurns(messages []*domain.ChatMessage) []domain.ConversationTurn {
	turns := make([]domain.ConversationTurn, 0, len(messages))
	for _, m := range messages {
		text := m.Text
		if m.Property != nil {
			// Модель видит карточку как обычный текст
			text = strings.TrimSpace(fmt.Sprintf("%s %s, %s, %s, %d m²", text, m.Property.Title, m.Property.Location, m.Property.Price, m.Property.Area))
		}
		turns = append(turns, domain.ConversationTurn{Role: domain.TurnRole(m.Sender), Text: text})
	}
	return turns
}
