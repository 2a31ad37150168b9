package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
	"github.com/zhouzirui/aura/backend/internal/service/ai"
	"github.com/zhouzirui/aura/backend/internal/service/history"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrBusy                 = errors.New("conversation is waiting for a reply")
	ErrEmptyUtterance       = errors.New("message text is required")
)

const (
	// ApologyText is appended as the model turn whenever an exchange fails.
	ApologyText = "I'm having trouble connecting right now. Please check your API key and connection."
	// FailureNotice is the transient banner shown next to the transcript after a failed exchange.
	FailureNotice = "Failed to communicate with Aura. Please check your connection."
)

// Exchanger submits one utterance with its prior turns to the model.
type Exchanger interface {
	Exchange(ctx context.Context, priorTurns []chat.Turn, newUtterance string) ai.Result
}

// Outcome reports both turns appended by SubmitUtterance.
type Outcome struct {
	User    chat.Message
	Reply   chat.Message
	Failure ai.FailureKind
	Notice  string
}

// Option customises a Service.
type Option func(*Service)

// WithWindow replaces the default trailing history window.
func WithWindow(policy history.Policy) Option {
	return func(s *Service) {
		if policy != nil {
			s.window = policy
		}
	}
}

// WithEventBuffer sets the per-subscriber event buffer.
func WithEventBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.eventBuffer = size
		}
	}
}

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service owns the in-memory conversations and orchestrates each exchange.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]*conversation

	exchanger   Exchanger
	window      history.Policy
	eventBuffer int
	now         func() time.Time
}

// NewService bootstraps the in-memory conversation controller.
func NewService(exchanger Exchanger, opts ...Option) *Service {
	s := &Service{
		conversations: make(map[string]*conversation),
		exchanger:     exchanger,
		window:        history.Trailing{Size: history.WindowSize},
		eventBuffer:   32,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation starts an empty conversation.
func (s *Service) CreateConversation(_ context.Context) (chat.State, error) {
	conv := &conversation{
		id:          uuid.NewString(),
		createdAt:   s.now(),
		messages:    make([]chat.Message, 0, 16),
		subscribers: make(map[int]chan chat.Event),
	}

	s.mu.Lock()
	s.conversations[conv.id] = conv
	s.mu.Unlock()

	log.Printf("[chat] created conversation=%s", conv.id)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.snapshot(), nil
}

// State returns a snapshot of the conversation.
func (s *Service) State(_ context.Context, conversationID string) (chat.State, error) {
	conv, err := s.lookup(conversationID)
	if err != nil {
		return chat.State{}, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.snapshot(), nil
}

// SubmitUtterance appends the user turn, exchanges it with the model and appends the model turn.
// It appends exactly two messages when it returns a nil error and none otherwise. A conversation
// accepts one utterance at a time; a second call while the first is in flight fails with ErrBusy.
func (s *Service) SubmitUtterance(ctx context.Context, conversationID, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, ErrEmptyUtterance
	}

	conv, err := s.lookup(conversationID)
	if err != nil {
		return Outcome{}, err
	}

	conv.mu.Lock()
	if conv.busy {
		conv.mu.Unlock()
		return Outcome{}, ErrBusy
	}

	priorTurns := s.window.Window(conv.messages)
	userMsg := s.newMessage(chat.RoleUser, text)
	conv.messages = append(conv.messages, userMsg)
	conv.busy = true
	hadNotice := conv.notice != ""
	conv.notice = ""

	conv.publish(chat.Event{Type: chat.EventMessage, Message: &userMsg})
	conv.publish(chat.Event{Type: chat.EventBusy, Busy: true})
	if hadNotice {
		conv.publish(chat.Event{Type: chat.EventNotice})
	}
	conv.mu.Unlock()

	// The exchange outlives a disconnected caller so the transcript always gets its model turn.
	result := s.exchanger.Exchange(context.WithoutCancel(ctx), priorTurns, text)

	outcome := Outcome{User: userMsg, Failure: result.Failure}
	if result.OK() {
		outcome.Reply = s.newMessage(chat.RoleModel, result.Reply)
	} else {
		log.Printf("[chat] exchange failed for conversation=%s: %v", conv.id, result.Err())
		outcome.Reply = s.newMessage(chat.RoleModel, ApologyText)
		outcome.Notice = FailureNotice
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.messages = append(conv.messages, outcome.Reply)
	conv.busy = false
	if outcome.Notice != "" {
		conv.notice = outcome.Notice
	}

	conv.publish(chat.Event{Type: chat.EventMessage, Message: &outcome.Reply})
	if outcome.Notice != "" {
		conv.publish(chat.Event{Type: chat.EventNotice, Notice: outcome.Notice})
	}
	conv.publish(chat.Event{Type: chat.EventBusy, Busy: false})

	return outcome, nil
}

// DismissNotice clears the transient error notice.
func (s *Service) DismissNotice(_ context.Context, conversationID string) error {
	conv, err := s.lookup(conversationID)
	if err != nil {
		return err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	if conv.notice == "" {
		return nil
	}
	conv.notice = ""
	conv.publish(chat.Event{Type: chat.EventNotice})
	return nil
}

// Close forgets a conversation and ends its subscriptions. An exchange already in flight still
// completes but its result is no longer observable.
func (s *Service) Close(_ context.Context, conversationID string) error {
	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if ok {
		delete(s.conversations, conversationID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrConversationNotFound
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	for id, ch := range conv.subscribers {
		close(ch)
		delete(conv.subscribers, id)
	}

	log.Printf("[chat] closed conversation=%s", conversationID)
	return nil
}

// Subscribe returns the current state together with a channel of subsequent events. The channel
// is closed when the conversation is closed or cancel is called. Events are dropped for a
// subscriber whose buffer is full.
func (s *Service) Subscribe(_ context.Context, conversationID string) (chat.State, <-chan chat.Event, func(), error) {
	conv, err := s.lookup(conversationID)
	if err != nil {
		return chat.State{}, nil, nil, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	id := conv.nextSubscriber
	conv.nextSubscriber++
	ch := make(chan chat.Event, s.eventBuffer)
	conv.subscribers[id] = ch

	cancel := func() {
		conv.mu.Lock()
		defer conv.mu.Unlock()
		if sub, ok := conv.subscribers[id]; ok {
			close(sub)
			delete(conv.subscribers, id)
		}
	}

	return conv.snapshot(), ch, cancel, nil
}

func (s *Service) lookup(conversationID string) (*conversation, error) {
	if conversationID == "" {
		return nil, ErrConversationNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *Service) newMessage(role chat.Role, text string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
	}
}

type conversation struct {
	mu             sync.Mutex
	id             string
	createdAt      time.Time
	messages       []chat.Message
	busy           bool
	notice         string
	subscribers    map[int]chan chat.Event
	nextSubscriber int
}

// snapshot must be called with mu held.
func (c *conversation) snapshot() chat.State {
	messages := make([]chat.Message, len(c.messages))
	copy(messages, c.messages)
	return chat.State{
		ConversationID: c.id,
		CreatedAt:      c.createdAt,
		Messages:       messages,
		Busy:           c.busy,
		Notice:         c.notice,
	}
}

// publish must be called with mu held.
func (c *conversation) publish(evt chat.Event) {
	evt.ConversationID = c.id
	for id, ch := range c.subscribers {
		select {
		case ch <- evt:
		default:
			log.Printf("[chat] dropping %s event for conversation=%s subscriber=%d", evt.Type, c.id, id)
		}
	}
}
