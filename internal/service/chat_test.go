package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realty_chat/internal/config"
	"realty_chat/internal/domain"
	apperrors "realty_chat/pkg/errors"
	"realty_chat/pkg/logger"
)

const testHandoffToken = "[[LIVE_SUPPORT]]"

type chatFixture struct {
	svc       ChatService
	chats     *fakeChatRepo
	listings  *fakeListingRepo
	typing    *fakeTypingRepo
	responder *spyResponder
	audit     *spyAudit
	publisher *spyPublisher
}

func newChatFixture(t *testing.T, replies ...string) *chatFixture {
	t.Helper()

	cfg := &config.Config{
		Chat: config.ChatConfig{
			HistoryWindow: 20,
			HandoffToken:  testHandoffToken,
			DefaultLocale: domain.LocaleTR,
			AssistantName: "Emlak Asistanı",
			TypingTTL:     8 * time.Second,
		},
		LLM: config.LLMConfig{Timeout: time.Second},
	}

	f := &chatFixture{
		chats:     newFakeChatRepo(),
		listings:  &fakeListingRepo{},
		typing:    newFakeTypingRepo(),
		responder: &spyResponder{replies: replies},
		audit:     &spyAudit{},
		publisher: &spyPublisher{},
	}
	f.svc = NewChatService(f.chats, f.listings, f.typing, f.audit, f.responder, f.publisher, cfg, logger.Discard())
	return f
}

func (f *chatFixture) start(t *testing.T) *domain.ChatSession {
	t.Helper()
	session, err := f.svc.StartSession(context.Background(), StartSessionInput{
		Name:   "Ayşe",
		Email:  "ayse@example.com",
		Phone:  "+90 555 000 00 00",
		Locale: "tr",
	})
	require.NoError(t, err)
	return session
}

func (f *chatFixture) setStatus(t *testing.T, id uuid.UUID, status string) {
	t.Helper()
	f.chats.mu.Lock()
	f.chats.sessions[id].Status = status
	f.chats.sessions[id].IsRead = true
	f.chats.mu.Unlock()
}

func TestStartSession(t *testing.T) {
	f := newChatFixture(t)
	session := f.start(t)

	assert.Equal(t, domain.SessionStatusBot, session.Status)
	assert.True(t, session.IsRead)
	assert.Equal(t, domain.LocaleTR, session.Locale)

	msgs := f.chats.stored(session.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.SenderBot, msgs[0].Sender)
	assert.Contains(t, msgs[0].Text, "Ayşe")
	assert.Contains(t, msgs[0].Text, "Emlak Asistanı")
	assert.Equal(t, []string{domain.EventTypeSessionStarted}, f.audit.events)
}

func TestStartSession_Validation(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.svc.StartSession(context.Background(), StartSessionInput{Name: "   "})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = f.svc.StartSession(context.Background(), StartSessionInput{Name: "Ali", Email: "not-an-email"})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestStartSession_LocaleFallback(t *testing.T) {
	f := newChatFixture(t)

	session, err := f.svc.StartSession(context.Background(), StartSessionInput{Name: "John", Locale: "en-GB"})
	require.NoError(t, err)
	assert.Equal(t, domain.LocaleEN, session.Locale)

	session, err = f.svc.StartSession(context.Background(), StartSessionInput{Name: "Hans", Locale: "de"})
	require.NoError(t, err)
	assert.Equal(t, domain.LocaleTR, session.Locale)
}

func TestHandleVisitorMessage_FreeText(t *testing.T) {
	f := newChatFixture(t, "Merhaba! Size nasıl yardımcı olabilirim?")
	session := f.start(t)

	result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "  merhaba  ", "tr")
	require.NoError(t, err)

	assert.False(t, result.RoutedToHuman)
	assert.Equal(t, domain.SessionStatusBot, result.Status)
	assert.Equal(t, "merhaba", result.Message.Text)
	require.NotNil(t, result.Reply)
	assert.Equal(t, domain.SenderBot, result.Reply.Sender)
	assert.Equal(t, "Merhaba! Size nasıl yardımcı olabilirim?", result.Reply.Text)

	// Текущее сообщение не входит в историю, оно передается отдельно
	require.Len(t, f.responder.calls, 1)
	call := f.responder.calls[0]
	assert.Equal(t, "merhaba", call.text)
	assert.Equal(t, domain.LocaleTR, call.locale)
	require.Len(t, call.history, 1)
	assert.Equal(t, domain.TurnRoleAssistant, call.history[0].Role)
}

func TestHandleVisitorMessage_HistoryWindow(t *testing.T) {
	replies := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		replies = append(replies, "tamam")
	}
	f := newChatFixture(t, replies...)
	session := f.start(t)

	for i := 0; i < 15; i++ {
		_, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "soru", "tr")
		require.NoError(t, err)
	}

	last := f.responder.calls[len(f.responder.calls)-1]
	assert.Len(t, last.history, 20)
	for _, turn := range last.history {
		assert.NotEmpty(t, turn.Text)
	}
}

func TestHandleVisitorMessage_Errors(t *testing.T) {
	f := newChatFixture(t)
	session := f.start(t)

	_, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "   ", "tr")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)

	_, err = f.svc.HandleVisitorMessage(context.Background(), uuid.New(), "merhaba", "tr")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatusFromError(err))
}

func TestHandleVisitorMessage_HandoffNeverPersistsSentinel(t *testing.T) {
	replies := []string{
		testHandoffToken,
		"Sizi bir temsilciye aktarıyorum " + testHandoffToken,
		testHandoffToken + " tabii",
	}

	for _, reply := range replies {
		t.Run(reply, func(t *testing.T) {
			f := newChatFixture(t, reply)
			session := f.start(t)

			result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "temsilci lütfen", "tr")
			require.NoError(t, err)

			assert.Equal(t, domain.SessionStatusLiveWaiting, result.Status)
			stored := f.chats.session(session.ID)
			assert.Equal(t, domain.SessionStatusLiveWaiting, stored.Status)
			assert.False(t, stored.IsRead)

			for _, m := range f.chats.stored(session.ID) {
				assert.NotContains(t, m.Text, testHandoffToken)
			}
			require.NotNil(t, result.Reply)
			assert.Equal(t, domain.SenderBot, result.Reply.Sender)
			assert.Equal(t, templates[domain.LocaleTR].handoff, result.Reply.Text)
			assert.Contains(t, f.audit.events, domain.EventTypeHandoffRequested)
		})
	}
}

func TestHandleVisitorMessage_OperatorJoinsDuringHandoff(t *testing.T) {
	f := newChatFixture(t, "Tabii "+testHandoffToken)
	session := f.start(t)

	operatorID := uuid.New()
	f.responder.during = func() {
		_, err := f.svc.OperatorReply(context.Background(), session.ID, operatorID, "Deniz", "Merhaba, ben Deniz")
		require.NoError(t, err)
	}

	result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "temsilci lütfen", "tr")
	require.NoError(t, err)

	assert.Nil(t, result.Reply)
	assert.Equal(t, domain.SessionStatusLiveActive, result.Status)

	stored := f.chats.session(session.ID)
	assert.Equal(t, domain.SessionStatusLiveActive, stored.Status)
	assert.True(t, stored.IsRead)

	messages := f.chats.stored(session.ID)
	require.NotEmpty(t, messages)
	last := messages[len(messages)-1]
	assert.Equal(t, domain.SenderOperator, last.Sender)
	for _, m := range messages {
		assert.NotEqual(t, templates[domain.LocaleTR].handoff, m.Text)
		assert.NotContains(t, m.Text, testHandoffToken)
	}
	assert.NotContains(t, f.audit.events, domain.EventTypeHandoffRequested)
	assert.NotContains(t, f.publisher.statuses(), domain.SessionStatusLiveWaiting)
}

func TestHandleVisitorMessage_LiveStatesSkipResponder(t *testing.T) {
	for _, status := range []string{domain.SessionStatusLiveWaiting, domain.SessionStatusLiveActive} {
		t.Run(status, func(t *testing.T) {
			f := newChatFixture(t, "should not be used")
			session := f.start(t)
			f.setStatus(t, session.ID, status)

			result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "orada mısınız?", "tr")
			require.NoError(t, err)

			assert.True(t, result.RoutedToHuman)
			assert.Nil(t, result.Reply)
			assert.Equal(t, status, result.Status)
			assert.Empty(t, f.responder.calls)

			stored := f.chats.session(session.ID)
			assert.False(t, stored.IsRead)
			assert.Equal(t, status, stored.Status)

			msgs := f.chats.stored(session.ID)
			assert.Equal(t, domain.SenderUser, msgs[len(msgs)-1].Sender)
		})
	}
}

func TestHandleVisitorMessage_PropertySearch(t *testing.T) {
	img := "https://cdn.example.com/1.jpg"
	listing := &domain.Listing{
		ID:        uuid.New(),
		Title:     "Deniz manzaralı 3+1 daire",
		Price:     "4.250.000 TL",
		Location:  "Kuşadası",
		Rooms:     "3+1",
		Bathrooms: 2,
		Area:      145,
		ImageURL:  &img,
		IsActive:  true,
	}
	instruction := `{"action":"search_properties","criteria":{"query":"deniz manzaralı","minArea":0,"maxArea":0,"rooms":null}}`

	t.Run("match", func(t *testing.T) {
		f := newChatFixture(t, instruction)
		f.listings.listings = []*domain.Listing{listing}
		session := f.start(t)

		result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "deniz manzaralı daire arıyorum", "tr")
		require.NoError(t, err)

		require.NotNil(t, result.Reply)
		require.NotNil(t, result.Reply.Property)
		assert.Equal(t, listing.ID, result.Reply.Property.ID)
		assert.Equal(t, img, result.Reply.Property.Image)

		raw := domain.EncodeContent(result.Reply.Text, result.Reply.Property)
		assert.Contains(t, raw, domain.PropertyDataOpen)
		assert.Contains(t, raw, listing.ID.String())

		require.Len(t, f.listings.searches, 1)
		assert.Equal(t, "deniz manzaralı", f.listings.searches[0].Query)
		assert.Nil(t, f.listings.searches[0].Rooms)
	})

	t.Run("no match", func(t *testing.T) {
		f := newChatFixture(t, instruction)
		f.listings.listings = []*domain.Listing{{ID: uuid.New(), Title: "Bahçeli villa", IsActive: true}}
		session := f.start(t)

		result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "deniz manzaralı daire", "tr")
		require.NoError(t, err)

		require.NotNil(t, result.Reply)
		assert.Nil(t, result.Reply.Property)
		assert.Equal(t, templates[domain.LocaleTR].notFound, result.Reply.Text)
		assert.NotContains(t, domain.EncodeContent(result.Reply.Text, result.Reply.Property), domain.PropertyDataOpen)
	})

	t.Run("inactive listings are ignored", func(t *testing.T) {
		f := newChatFixture(t, instruction)
		inactive := *listing
		inactive.IsActive = false
		f.listings.listings = []*domain.Listing{&inactive}
		session := f.start(t)

		result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "deniz manzaralı", "en")
		require.NoError(t, err)
		assert.Nil(t, result.Reply.Property)
		assert.Equal(t, templates[domain.LocaleEN].notFound, result.Reply.Text)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newChatFixture(t, instruction)
		f.listings.err = errors.New("connection refused")
		session := f.start(t)

		result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "deniz manzaralı", "tr")
		require.NoError(t, err)
		assert.Equal(t, templates[domain.LocaleTR].apology, result.Reply.Text)
	})
}

func TestHandleVisitorMessage_ResponderFailureKeepsVisitorMessage(t *testing.T) {
	f := newChatFixture(t)
	f.responder.err = context.DeadlineExceeded
	session := f.start(t)

	result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "fiyatlar nedir?", "tr")
	require.NoError(t, err)

	require.NotNil(t, result.Reply)
	assert.Equal(t, templates[domain.LocaleTR].apology, result.Reply.Text)
	assert.Equal(t, domain.SessionStatusBot, result.Status)

	msgs := f.chats.stored(session.ID)
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.SenderUser, msgs[1].Sender)
	assert.Equal(t, "fiyatlar nedir?", msgs[1].Text)
	assert.Equal(t, domain.SenderBot, msgs[2].Sender)
}

func TestHandleVisitorMessage_MalformedInstructionIsText(t *testing.T) {
	raw := `{"action":"search_properties","criteria":{"query":`
	f := newChatFixture(t, raw)
	session := f.start(t)

	result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "ev", "tr")
	require.NoError(t, err)
	assert.Equal(t, raw, result.Reply.Text)
	assert.Empty(t, f.listings.searches)
}

func TestOperatorReply(t *testing.T) {
	f := newChatFixture(t)
	session := f.start(t)
	f.setStatus(t, session.ID, domain.SessionStatusLiveWaiting)
	require.NoError(t, f.svc.SetTyping(context.Background(), session.ID, true))

	operatorID := uuid.New()
	msg, err := f.svc.OperatorReply(context.Background(), session.ID, operatorID, "Deniz", "Merhaba")
	require.NoError(t, err)

	assert.Equal(t, domain.SenderOperator, msg.Sender)
	require.NotNil(t, msg.DisplayName)
	assert.Equal(t, "Deniz", *msg.DisplayName)
	assert.Equal(t, domain.SessionStatusLiveActive, f.chats.session(session.ID).Status)

	typing, err := f.typing.IsTyping(context.Background(), session.ID)
	require.NoError(t, err)
	assert.False(t, typing)
	assert.Contains(t, f.audit.events, domain.EventTypeOperatorReplied)
}

func TestOperatorReply_Errors(t *testing.T) {
	f := newChatFixture(t)
	session := f.start(t)

	_, err := f.svc.OperatorReply(context.Background(), session.ID, uuid.New(), "Deniz", " ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)

	_, err = f.svc.OperatorReply(context.Background(), uuid.New(), uuid.New(), "Deniz", "Merhaba")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestSetTyping(t *testing.T) {
	f := newChatFixture(t)
	session := f.start(t)

	require.NoError(t, f.svc.SetTyping(context.Background(), session.ID, true))
	snap, err := f.svc.GetSnapshot(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, snap.AdminTyping)
	assert.Equal(t, 8*time.Second, f.typing.typing[session.ID])
	assert.Equal(t, domain.SessionStatusBot, snap.Status)

	require.NoError(t, f.svc.SetTyping(context.Background(), session.ID, false))
	snap, err = f.svc.GetSnapshot(context.Background(), session.ID)
	require.NoError(t, err)
	assert.False(t, snap.AdminTyping)

	assert.ErrorIs(t, f.svc.SetTyping(context.Background(), uuid.New(), true), apperrors.ErrSessionNotFound)
}

func TestGetSnapshot_Idempotent(t *testing.T) {
	f := newChatFixture(t, "Merhaba!")
	session := f.start(t)
	_, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "merhaba", "tr")
	require.NoError(t, err)

	first, err := f.svc.GetSnapshot(context.Background(), session.ID)
	require.NoError(t, err)
	second, err := f.svc.GetSnapshot(context.Background(), session.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first.Messages, 3)
	for i := 1; i < len(first.Messages); i++ {
		assert.Less(t, first.Messages[i-1].ID, first.Messages[i].ID)
	}
}

func TestGetSnapshot_TypingStoreDown(t *testing.T) {
	f := newChatFixture(t)
	session := f.start(t)
	f.typing.err = errors.New("redis down")

	snap, err := f.svc.GetSnapshot(context.Background(), session.ID)
	require.NoError(t, err)
	assert.False(t, snap.AdminTyping)
}

func TestEndChat_EagerReset(t *testing.T) {
	f := newChatFixture(t, "Tekrar merhaba!")
	session := f.start(t)
	f.setStatus(t, session.ID, domain.SessionStatusLiveActive)

	snap, err := f.svc.EndChat(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusBot, snap.Status)

	// После завершения снова отвечает ассистент
	result, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "merhaba", "tr")
	require.NoError(t, err)
	assert.False(t, result.RoutedToHuman)
	assert.Len(t, f.responder.calls, 1)

	_, err = f.svc.EndChat(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestListSessionsAndMarkRead(t *testing.T) {
	f := newChatFixture(t)
	first := f.start(t)
	second := f.start(t)
	f.setStatus(t, second.ID, domain.SessionStatusLiveWaiting)

	_, err := f.svc.ListSessions(context.Background(), "ended", 10, 0)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	all, err := f.svc.ListSessions(context.Background(), "", 0, -5)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	waiting, err := f.svc.ListSessions(context.Background(), domain.SessionStatusLiveWaiting, 10, 0)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, second.ID, waiting[0].ID)
	require.NotNil(t, waiting[0].LastMessage)

	_, err = f.svc.HandleVisitorMessage(context.Background(), second.ID, "merhaba?", "tr")
	require.NoError(t, err)
	assert.False(t, f.chats.session(second.ID).IsRead)

	updated, err := f.svc.MarkRead(context.Background(), second.ID, uuid.New())
	require.NoError(t, err)
	assert.True(t, updated.IsRead)
	assert.True(t, f.chats.session(first.ID).IsRead)
	assert.Contains(t, f.audit.events, domain.EventTypeSessionRead)
}

func TestChatScenario(t *testing.T) {
	f := newChatFixture(t,
		"Merhaba! Size nasıl yardımcı olabilirim?",
		"Elbette, sizi canlı desteğe aktarıyorum. "+testHandoffToken,
	)
	session := f.start(t)
	ctx := context.Background()

	result, err := f.svc.HandleVisitorMessage(ctx, session.ID, "merhaba", "tr")
	require.NoError(t, err)
	assert.Equal(t, domain.SenderBot, result.Reply.Sender)
	assert.Equal(t, domain.SessionStatusBot, f.chats.session(session.ID).Status)

	result, err = f.svc.HandleVisitorMessage(ctx, session.ID, "canlı destek ile görüşmek istiyorum", "tr")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusLiveWaiting, f.chats.session(session.ID).Status)
	assert.False(t, f.chats.session(session.ID).IsRead)
	assert.Equal(t, domain.SenderBot, result.Reply.Sender)
	assert.False(t, strings.Contains(result.Reply.Text, testHandoffToken))

	msg, err := f.svc.OperatorReply(ctx, session.ID, uuid.New(), "Deniz", "Merhaba, size nasıl yardımcı olabilirim?")
	require.NoError(t, err)
	assert.Equal(t, domain.SenderOperator, msg.Sender)
	assert.Equal(t, domain.SessionStatusLiveActive, f.chats.session(session.ID).Status)

	snap, err := f.svc.EndChat(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusBot, snap.Status)

	assert.Len(t, f.responder.calls, 2)
	assert.Equal(t, []string{
		domain.EventTypeSessionStarted,
		domain.EventTypeHandoffRequested,
		domain.EventTypeOperatorReplied,
		domain.EventTypeSessionEnded,
	}, f.audit.events)
	assert.Contains(t, f.publisher.types(), domain.SessionEventStatus)
	assert.Contains(t, f.publisher.types(), domain.SessionEventMessage)
}

func TestPublisherFailureDoesNotFailRequest(t *testing.T) {
	f := newChatFixture(t, "Merhaba!")
	f.publisher.err = errors.New("nats unavailable")
	session := f.start(t)

	_, err := f.svc.HandleVisitorMessage(context.Background(), session.ID, "merhaba", "tr")
	assert.NoError(t, err)
}
