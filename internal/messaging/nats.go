package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"realty_chat/internal/domain"
	"realty_chat/pkg/logger"
)

// SubjectSession + ".<session_id>" - события одной сессии чата
const SubjectSession = "chat.session"

func SessionSubject(sessionID uuid.UUID) string {
	return SubjectSession + "." + sessionID.String()
}

type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int // -1 - без ограничения
}

// NATSClient - обертка над соединением NATS. Подписки хранятся по ключу
// подписчика, чтобы несколько websocket-клиентов одной сессии не мешали друг другу.
type NATSClient struct {
	conn *nats.Conn
	log  logger.Logger
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func NewNATSClient(cfg NATSConfig, log logger.Logger) (*NATSClient, error) {
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info("Connected to NATS", "url", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		log:  log,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// PublishSessionEvent публикует событие в subject сессии
func (c *NATSClient) PublishSessionEvent(event *domain.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err := c.conn.Publish(SessionSubject(event.SessionID), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// SubscribeSession подписывает subscriberID на события сессии
func (c *NATSClient) SubscribeSession(sessionID uuid.UUID, subscriberID string, handler func(data []byte)) error {
	subject := SessionSubject(sessionID)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	if old, ok := c.subs[subscriberID]; ok {
		_ = old.Unsubscribe()
	}
	c.subs[subscriberID] = sub
	c.mu.Unlock()

	return nil
}

func (c *NATSClient) UnsubscribeSession(subscriberID string) error {
	c.mu.Lock()
	sub, ok := c.subs[subscriberID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for %s", subscriberID)
	}
	delete(c.subs, subscriberID)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", subscriberID, err)
	}
	return nil
}

func (c *NATSClient) IsConnected() bool {
	return c.conn.IsConnected()
}

// Close дренирует подписки и закрывает соединение
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.log.Warn("NATS subscription drain failed", "subscriber", key, "error", err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		c.log.Warn("NATS connection drain failed", "error", err)
	}
}
