package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/assistant"
	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/RoyceAzure/lab/assia/internal/parser"
	"github.com/RoyceAzure/lab/assia/internal/storeprofile"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrQuickOptionUnknown = errors.New("quick option not found")
)

const DefaultHistoryLimit = 20

// MessageView 訊息與解析後的段落
// 助理訊息才會解析出商品卡
type MessageView struct {
	model.ChatMessage
	Segments []parser.Segment `json:"segments"`
}

// QuickOptionResult RedirectURL 有值時不會送出訊息
type QuickOptionResult struct {
	RedirectURL string      `json:"redirect_url,omitempty"`
	Reply       *SendResult `json:"reply,omitempty"`
}

type SendResult struct {
	UserMessage  MessageView `json:"user_message"`
	AssistantMsg MessageView `json:"assistant_message"`
}

type IChatService interface {
	StartSession() (*Session, MessageView)
	History(sessionID string) ([]MessageView, error)
	Send(ctx context.Context, sessionID, text string) (*SendResult, error)
	SelectQuickOption(ctx context.Context, sessionID, optionID string) (*QuickOptionResult, error)
}

type ChatService struct {
	sessions     ISessionStore
	assistant    assistant.IAssistant
	profile      *storeprofile.Profile
	historyLimit int
	metrics      *metrics.Metrics
	logger       *zerolog.Logger
	now          func() time.Time
}

var _ IChatService = (*ChatService)(nil)

type ChatServiceOption func(*ChatService)

func WithHistoryLimit(limit int) ChatServiceOption {
	return func(c *ChatService) {
		if limit > 0 {
			c.historyLimit = limit
		}
	}
}

func WithChatMetrics(m *metrics.Metrics) ChatServiceOption {
	return func(c *ChatService) {
		c.metrics = m
	}
}

func NewChatService(sessions ISessionStore, a assistant.IAssistant, profile *storeprofile.Profile, logger *zerolog.Logger, options ...ChatServiceOption) *ChatService {
	if sessions == nil || a == nil || profile == nil || logger == nil {
		panic("chat service dependency is nil")
	}
	c := &ChatService{
		sessions:     sessions,
		assistant:    a,
		profile:      profile,
		historyLimit: DefaultHistoryLimit,
		logger:       logger,
		now:          time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// StartSession 建立 session 並放入歡迎訊息
// 歡迎訊息不送給助理
func (c *ChatService) StartSession() (*Session, MessageView) {
	sess := c.sessions.Create()
	greeting := c.newMessage(model.RoleAssistant, c.profile.Greeting)

	sess.mu.Lock()
	sess.messages = append(sess.messages, greeting)
	sess.mu.Unlock()

	return sess, toView(greeting)
}

func (c *ChatService) History(sessionID string) ([]MessageView, error) {
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	messages := make([]model.ChatMessage, len(sess.messages))
	copy(messages, sess.messages)
	sess.mu.Unlock()

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, toView(m))
	}
	return views, nil
}

/*
Send 同一個 session 一次只處理一則訊息
助理錯誤不會往外傳，改以固定訊息回覆
只有成功且非空的回覆會寫入助理歷史
*/
func (c *ChatService) Send(ctx context.Context, sessionID, text string) (*SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	userMsg := c.newMessage(model.RoleUser, text)
	sess.messages = append(sess.messages, userMsg)

	history := make([]assistant.Turn, len(sess.turns))
	copy(history, sess.turns)

	replyText, err := c.assistant.Reply(ctx, history, text)
	switch {
	case err != nil:
		replyText = c.failureMessage(err)
		c.logger.Error().Err(err).Str("session_id", sessionID).Msg("assistant round trip failed")
	case replyText == "":
		replyText = c.profile.Messages.EmptyReply
		c.metrics.AssistantRequest("empty")
	default:
		sess.turns = append(sess.turns,
			assistant.Turn{Role: model.RoleUser, Text: text},
			assistant.Turn{Role: model.RoleAssistant, Text: replyText},
		)
		if len(sess.turns) > c.historyLimit {
			sess.turns = append([]assistant.Turn(nil), sess.turns[len(sess.turns)-c.historyLimit:]...)
		}
		c.metrics.AssistantRequest("ok")
	}

	assistantMsg := c.newMessage(model.RoleAssistant, replyText)
	sess.messages = append(sess.messages, assistantMsg)

	return &SendResult{
		UserMessage:  toView(userMsg),
		AssistantMsg: toView(assistantMsg),
	}, nil
}

func (c *ChatService) SelectQuickOption(ctx context.Context, sessionID, optionID string) (*QuickOptionResult, error) {
	opt, ok := c.profile.QuickOption(optionID)
	if !ok {
		return nil, ErrQuickOptionUnknown
	}
	if _, err := c.sessions.Get(sessionID); err != nil {
		return nil, err
	}
	if opt.Action == storeprofile.ActionRedirectWhatsApp {
		return &QuickOptionResult{RedirectURL: c.profile.WhatsAppLink}, nil
	}

	reply, err := c.Send(ctx, sessionID, opt.Action)
	if err != nil {
		return nil, err
	}
	return &QuickOptionResult{Reply: reply}, nil
}

func (c *ChatService) failureMessage(err error) string {
	switch {
	case errors.Is(err, assistant.ErrQuotaExceeded):
		c.metrics.AssistantRequest("quota")
		return c.profile.Messages.QuotaExceeded
	case errors.Is(err, assistant.ErrInvalidCredential):
		c.metrics.AssistantRequest("credential")
		return c.profile.Messages.InvalidCredential
	default:
		c.metrics.AssistantRequest("error")
		return c.profile.Messages.AssistantFailed
	}
}

func (c *ChatService) newMessage(role model.Role, text string) model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: c.now(),
	}
}

func toView(m model.ChatMessage) MessageView {
	view := MessageView{ChatMessage: m}
	if m.Role == model.RoleAssistant {
		view.Segments = parser.ParseAll(m.Text)
	} else {
		view.Segments = []parser.Segment{{Kind: parser.SegmentText, Runs: []parser.Run{{Text: m.Text}}}}
	}
	return view
}
