package service

import (
	"context"
	"sync"

	"coworking/internal/auth"
	"coworking/internal/availability"
	"coworking/internal/booking"
	"coworking/internal/domain"
	"coworking/internal/events"
	"coworking/internal/models"

	"github.com/rs/zerolog"
)

// Step is where a chat is in the conversation. It is kept in memory only.
type Step string

const (
	StepIdle          Step = ""
	StepLoginEmail    Step = "login_email"
	StepLoginPassword Step = "login_password"
	StepDraftStart    Step = "draft_start"
	StepDraftEnd      Step = "draft_end"
	StepDraftEmail    Step = "draft_email"
)

// SeatEngine is what a chat needs from the availability engine.
type SeatEngine interface {
	availability.SeatLookup
	domain.Refresher
}

// Chat bundles the per-user state of one Telegram chat.
type Chat struct {
	ID       int64
	Session  *auth.Session
	Selector *availability.Selector
	Flow     *booking.Flow

	mu         sync.Mutex
	step       Step
	loginEmail string
}

func (c *Chat) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Chat) SetStep(step Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
}

// LoginEmail is the email typed during the current login attempt.
func (c *Chat) LoginEmail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginEmail
}

func (c *Chat) SetLoginEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loginEmail = email
}

// OpenDraft opens the booking form, filling the email from the session.
func (c *Chat) OpenDraft(draft *models.BookingDraft) {
	d := *draft
	if d.Email == "" {
		d.Email = c.Session.Email()
	}
	c.Flow.Open(&d)
}

// Reset drops the form, the pending seat and the conversation step.
func (c *Chat) Reset() {
	c.Flow.Close()
	c.Selector.DiscardPending()
	c.mu.Lock()
	c.step = StepIdle
	c.loginEmail = ""
	c.mu.Unlock()
}

// CredentialChecker asks the API whether a token is still accepted.
type CredentialChecker interface {
	Check(ctx context.Context, token string) (bool, error)
}

var _ CredentialChecker = (*auth.Client)(nil)

// ResumeFunc is called after a login turned a remembered seat into an open form.
type ResumeFunc func(chat *Chat, draft models.BookingDraft)

// ChatService creates chats on first use and restores their saved credential.
type ChatService struct {
	engine  SeatEngine
	creator domain.BookingCreator
	repo    domain.SessionRepository
	bus     domain.EventPublisher
	logger  *zerolog.Logger

	mu       sync.Mutex
	chats    map[int64]*Chat
	onResume ResumeFunc
	checker  CredentialChecker
}

func NewChatService(
	engine SeatEngine,
	creator domain.BookingCreator,
	repo domain.SessionRepository,
	bus domain.EventPublisher,
	logger *zerolog.Logger,
) *ChatService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ChatService{
		engine:  engine,
		creator: creator,
		repo:    repo,
		bus:     bus,
		logger:  logger,
		chats:   make(map[int64]*Chat),
	}
}

// OnResume sets the callback for resumed intents. Set it before the first Get.
func (s *ChatService) OnResume(fn ResumeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResume = fn
}

// UseChecker makes Get confirm restored credentials with the API.
func (s *ChatService) UseChecker(checker CredentialChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checker = checker
}

// Get returns the chat, creating it and loading its session if needed.
func (s *ChatService) Get(ctx context.Context, chatID int64) *Chat {
	s.mu.Lock()
	if chat, ok := s.chats[chatID]; ok {
		s.mu.Unlock()
		return chat
	}

	session := auth.NewSession(chatID, s.repo, s.logger)
	if err := session.Load(ctx); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to restore session")
	}

	chat := &Chat{
		ID:       chatID,
		Session:  session,
		Selector: availability.NewSelector(s.engine, session),
		Flow:     booking.NewFlow(chatID, s.creator, s.engine, s.bus, s.logger),
	}
	session.Subscribe(func() { s.resume(chat) })

	s.chats[chatID] = chat
	checker := s.checker
	s.mu.Unlock()

	s.verify(ctx, chat, checker)
	return chat
}

// verify drops a restored credential the API no longer accepts.
// When the API cannot be asked the credential is kept.
func (s *ChatService) verify(ctx context.Context, chat *Chat, checker CredentialChecker) {
	if checker == nil {
		return
	}
	token, ok := chat.Session.Credential()
	if !ok {
		return
	}

	valid, err := checker.Check(ctx, token)
	if err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chat.ID).Msg("failed to check restored session")
		return
	}
	if !valid {
		s.logger.Info().Int64("chat_id", chat.ID).Msg("restored session rejected by API")
		chat.Session.Clear(ctx)
	}
}

func (s *ChatService) resume(chat *Chat) {
	draft, ok := chat.Selector.OnAuthenticationSucceeded()
	if !ok {
		return
	}
	chat.OpenDraft(draft)
	opened, _ := chat.Flow.Draft()

	if s.bus != nil {
		payload := events.IntentResumedPayload{ChatID: chat.ID, SeatID: opened.SeatID}
		if err := s.bus.PublishJSON(events.EventIntentResumed, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish intent_resumed")
		}
	}

	s.mu.Lock()
	onResume := s.onResume
	s.mu.Unlock()
	if onResume != nil {
		onResume(chat, opened)
	}
}
