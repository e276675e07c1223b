package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"realty_chat/internal/domain"
	"realty_chat/internal/repository"
	apperrors "realty_chat/pkg/errors"
)

type fakeChatRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.ChatSession
	messages map[uuid.UUID][]*domain.ChatMessage
	nextID   int64
	clock    time.Time
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		sessions: make(map[uuid.UUID]*domain.ChatSession),
		messages: make(map[uuid.UUID][]*domain.ChatMessage),
		clock:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (r *fakeChatRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeChatRepo) CreateSession(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	session.CreatedAt, session.UpdatedAt = now, now
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *fakeChatRepo) GetSession(_ context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeChatRepo) UpdateSession(_ context.Context, id uuid.UUID, update repository.SessionUpdate) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	if update.ExpectStatus != nil && s.Status != *update.ExpectStatus {
		return nil, apperrors.ErrStatusConflict
	}
	if update.Status != nil {
		s.Status = *update.Status
	}
	if update.IsRead != nil {
		s.IsRead = *update.IsRead
	}
	s.UpdatedAt = r.tick()
	cp := *s
	return &cp, nil
}

func (r *fakeChatRepo) ListSessions(_ context.Context, status string, limit, offset int) ([]*domain.SessionSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.SessionSummary{}
	for id, s := range r.sessions {
		if status != "" && s.Status != status {
			continue
		}
		summary := &domain.SessionSummary{ChatSession: *s}
		if msgs := r.messages[id]; len(msgs) > 0 {
			last := *msgs[len(msgs)-1]
			summary.LastMessage = &last
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= len(out) {
		return []*domain.SessionSummary{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeChatRepo) CreateMessage(_ context.Context, message *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[message.SessionID]
	if !ok {
		return errors.New("foreign key violation")
	}
	r.nextID++
	message.ID = r.nextID
	message.CreatedAt = r.tick()
	s.UpdatedAt = message.CreatedAt
	// Хранилище видит только закодированную форму
	stored := *message
	stored.Text, stored.Property = domain.DecodeContent(domain.EncodeContent(message.Text, message.Property))
	r.messages[message.SessionID] = append(r.messages[message.SessionID], &stored)
	return nil
}

func (r *fakeChatRepo) GetMessages(_ context.Context, sessionID uuid.UUID) ([]*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.ChatMessage{}
	for _, m := range r.messages[sessionID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeChatRepo) GetRecentMessages(_ context.Context, sessionID uuid.UUID, beforeID int64, limit int) ([]*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.ChatMessage{}
	for _, m := range r.messages[sessionID] {
		if m.ID < beforeID {
			cp := *m
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeChatRepo) session(id uuid.UUID) domain.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.sessions[id]
}

func (r *fakeChatRepo) stored(id uuid.UUID) []*domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.ChatMessage(nil), r.messages[id]...)
}

type fakeListingRepo struct {
	listings []*domain.Listing
	err      error
	searches []domain.SearchCriteria
}

func (r *fakeListingRepo) Search(_ context.Context, criteria domain.SearchCriteria, limit int) ([]*domain.Listing, error) {
	r.searches = append(r.searches, criteria)
	if r.err != nil {
		return nil, r.err
	}
	q := strings.ToLower(criteria.Query)
	out := []*domain.Listing{}
	for _, l := range r.listings {
		if !l.IsActive {
			continue
		}
		haystack := strings.ToLower(strings.Join([]string{l.Title, l.Description, l.Location}, " "))
		if q != "" && !strings.Contains(haystack, q) {
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeListingRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	for _, l := range r.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, apperrors.ErrListingNotFound
}

func (r *fakeListingRepo) Create(_ context.Context, l *domain.Listing) error {
	r.listings = append(r.listings, l)
	return nil
}

func (r *fakeListingRepo) CountActive(context.Context) (int, error) {
	return len(r.listings), nil
}

type fakeTypingRepo struct {
	mu     sync.Mutex
	typing map[uuid.UUID]time.Duration
	err    error
}

func newFakeTypingRepo() *fakeTypingRepo {
	return &fakeTypingRepo{typing: make(map[uuid.UUID]time.Duration)}
}

func (r *fakeTypingRepo) SetTyping(_ context.Context, id uuid.UUID, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typing[id] = ttl
	return nil
}

func (r *fakeTypingRepo) ClearTyping(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.typing, id)
	return nil
}

func (r *fakeTypingRepo) IsTyping(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.typing[id]
	return ok, nil
}

// spyResponder запоминает вызовы и отвечает по очереди
type spyResponder struct {
	replies []string
	err     error
	calls   []responderCall
	// during выполняется внутри вызова, до возврата ответа
	during func()
}

type responderCall struct {
	history []domain.ConversationTurn
	text    string
	locale  string
}

func (r *spyResponder) Respond(_ context.Context, history []domain.ConversationTurn, text, locale string) (string, error) {
	r.calls = append(r.calls, responderCall{history: history, text: text, locale: locale})
	if r.during != nil {
		r.during()
	}
	if r.err != nil {
		return "", r.err
	}
	if len(r.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := r.replies[0]
	r.replies = r.replies[1:]
	return reply, nil
}

type spyAudit struct {
	events []string
}

func (a *spyAudit) LogEvent(_ context.Context, _ *uuid.UUID, _ string, _ *uuid.UUID, eventType string, _ map[string]interface{}) error {
	a.events = append(a.events, eventType)
	return nil
}

type spyPublisher struct {
	mu     sync.Mutex
	events []*domain.SessionEvent
	err    error
}

func (p *spyPublisher) PublishSessionEvent(event *domain.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *spyPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *spyPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.Type == domain.SessionEventStatus {
			out = append(out, e.Status)
		}
	}
	return out
}
