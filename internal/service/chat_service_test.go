package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/assistant"
	"github.com/RoyceAzure/lab/assia/internal/parser"
	"github.com/RoyceAzure/lab/assia/internal/storeprofile"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

type fakeAssistant struct {
	mu        sync.Mutex
	replies   []string
	errs      []error
	histories [][]assistant.Turn
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	delay     time.Duration
}

func (f *fakeAssistant) Reply(_ context.Context, history []assistant.Turn, message string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.histories)
	f.histories = append(f.histories, history)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "eco: " + message, nil
}

type ChatServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	profile   *storeprofile.Profile
	assistant *fakeAssistant
	sessions  *SessionStore
	service   *ChatService
}

func TestChatServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ChatServiceTestSuite))
}

func (s *ChatServiceTestSuite) SetupTest() {
	profile, err := storeprofile.Default()
	s.Require().NoError(err)
	s.profile = profile
	s.ctx = context.Background()
	s.assistant = &fakeAssistant{}
	s.sessions = NewSessionStore(time.Second)
	logger := zerolog.Nop()
	s.service = NewChatService(s.sessions, s.assistant, s.profile, &logger)
}

func (s *ChatServiceTestSuite) TestStartSessionGreets() {
	sess, greeting := s.service.StartSession()

	s.NotEmpty(sess.ID)
	s.Equal(model.RoleAssistant, greeting.Role)
	s.Equal(s.profile.Greeting, greeting.Text)

	history, err := s.service.History(sess.ID)
	s.Require().NoError(err)
	s.Len(history, 1)
	s.Empty(s.assistant.histories, "greeting must not call the assistant")
}

func (s *ChatServiceTestSuite) TestSendParsesProducts() {
	s.assistant.replies = []string{"Paz do Senhor!\n**Harpa Cristã**\nPreço: $19.90\nImagem: https://img/harpa.jpg"}
	sess, _ := s.service.StartSession()

	result, err := s.service.Send(s.ctx, sess.ID, "harpa")
	s.Require().NoError(err)

	s.Equal("harpa", result.UserMessage.Text)
	segments := result.AssistantMsg.Segments
	s.Require().Len(segments, 2)
	s.Equal(parser.SegmentProduct, segments[1].Kind)
	s.Equal("Harpa Cristã", segments[1].Product.DisplayName())

	history, err := s.service.History(sess.ID)
	s.Require().NoError(err)
	s.Len(history, 3)
}

func (s *ChatServiceTestSuite) TestBlankMessageRejected() {
	sess, _ := s.service.StartSession()
	_, err := s.service.Send(s.ctx, sess.ID, "   ")
	s.ErrorIs(err, ErrEmptyMessage)
}

func (s *ChatServiceTestSuite) TestUnknownSession() {
	_, err := s.service.Send(s.ctx, "nope", "oi")
	s.ErrorIs(err, ErrSessionNotFound)
	_, err = s.service.History("nope")
	s.ErrorIs(err, ErrSessionNotFound)
}

func (s *ChatServiceTestSuite) TestHistoryOnlyKeepsSuccessfulReplies() {
	s.assistant.replies = []string{"primeira", "", "", "terceira"}
	s.assistant.errs = []error{nil, nil, fmt.Errorf("%w: boom", assistant.ErrAssistantFailed), nil}
	sess, _ := s.service.StartSession()

	r, err := s.service.Send(s.ctx, sess.ID, "a")
	s.Require().NoError(err)
	s.Equal("primeira", r.AssistantMsg.Text)

	r, err = s.service.Send(s.ctx, sess.ID, "b")
	s.Require().NoError(err)
	s.Equal(s.profile.Messages.EmptyReply, r.AssistantMsg.Text)

	r, err = s.service.Send(s.ctx, sess.ID, "c")
	s.Require().NoError(err)
	s.Equal(s.profile.Messages.AssistantFailed, r.AssistantMsg.Text)

	_, err = s.service.Send(s.ctx, sess.ID, "d")
	s.Require().NoError(err)

	last := s.assistant.histories[3]
	s.Equal([]assistant.Turn{
		{Role: model.RoleUser, Text: "a"},
		{Role: model.RoleAssistant, Text: "primeira"},
	}, last)
}

func (s *ChatServiceTestSuite) TestFailureMessages() {
	s.assistant.errs = []error{
		fmt.Errorf("%w: 429", assistant.ErrQuotaExceeded),
		fmt.Errorf("%w: not found", assistant.ErrInvalidCredential),
		errors.New("unclassified"),
	}
	sess, _ := s.service.StartSession()

	expected := []string{
		s.profile.Messages.QuotaExceeded,
		s.profile.Messages.InvalidCredential,
		s.profile.Messages.AssistantFailed,
	}
	for _, want := range expected {
		r, err := s.service.Send(s.ctx, sess.ID, "oi")
		s.Require().NoError(err)
		s.Equal(want, r.AssistantMsg.Text)
	}
}

func (s *ChatServiceTestSuite) TestHistoryCappedAtLimit() {
	sess, _ := s.service.StartSession()
	for i := 0; i < 15; i++ {
		_, err := s.service.Send(s.ctx, sess.ID, fmt.Sprintf("m%d", i))
		s.Require().NoError(err)
	}

	s.Require().NoError(func() error { _, err := s.service.Send(s.ctx, sess.ID, "final"); return err }())
	last := s.assistant.histories[len(s.assistant.histories)-1]
	s.Len(last, DefaultHistoryLimit)
	s.Equal("m5", last[0].Text)
}

func (s *ChatServiceTestSuite) TestSendSerializedPerSession() {
	s.assistant.delay = 20 * time.Millisecond
	sess, _ := s.service.StartSession()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.service.Send(s.ctx, sess.ID, "oi")
		}()
	}
	wg.Wait()

	s.Equal(int32(1), s.assistant.maxFlight.Load())

	history, err := s.service.History(sess.ID)
	s.Require().NoError(err)
	s.Len(history, 9)
	for i := 1; i < len(history); i += 2 {
		s.Equal(model.RoleUser, history[i].Role)
		s.Equal(model.RoleAssistant, history[i+1].Role)
	}
}

func (s *ChatServiceTestSuite) TestQuickOptions() {
	sess, _ := s.service.StartSession()

	res, err := s.service.SelectQuickOption(s.ctx, sess.ID, "4")
	s.Require().NoError(err)
	s.Equal(s.profile.WhatsAppLink, res.RedirectURL)
	s.Nil(res.Reply)
	s.Empty(s.assistant.histories)

	res, err = s.service.SelectQuickOption(s.ctx, sess.ID, "2")
	s.Require().NoError(err)
	s.Require().NotNil(res.Reply)
	s.Equal("Quais modelos de Harpa Cristã vocês têm no catálogo?", res.Reply.UserMessage.Text)

	_, err = s.service.SelectQuickOption(s.ctx, sess.ID, "x")
	s.ErrorIs(err, ErrQuickOptionUnknown)
}
