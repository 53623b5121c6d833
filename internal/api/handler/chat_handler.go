package handler

import (
	"encoding/json"
	"net/http"

	"github.com/RoyceAzure/lab/assia/internal/api/dto"
	"github.com/RoyceAzure/lab/assia/internal/api/response"
	"github.com/RoyceAzure/lab/assia/internal/service"
	"github.com/RoyceAzure/lab/assia/internal/storeprofile"
	"github.com/go-chi/chi/v5"
)

const (
	SessionIDParam   = "sid"
	QuickOptionParam = "optionID"
)

type ChatHandler struct {
	chatService service.IChatService
	sessions    service.ISessionStore
	profile     *storeprofile.Profile
}

func NewChatHandler(chatService service.IChatService, sessions service.ISessionStore, profile *storeprofile.Profile) *ChatHandler {
	if chatService == nil {
		panic("chatService cannot be nil")
	}
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if profile == nil {
		panic("profile cannot be nil")
	}
	return &ChatHandler{
		chatService: chatService,
		sessions:    sessions,
		profile:     profile,
	}
}

// Store 商店名稱與快捷選項
func (h *ChatHandler) Store(w http.ResponseWriter, r *http.Request) {
	response.SuccessJSON(w, dto.StoreDTO{
		StoreName:    h.profile.StoreName,
		StoreURL:     h.profile.StoreURL,
		WhatsAppLink: h.profile.WhatsAppLink,
		QuickOptions: h.profile.QuickOptions,
	})
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, greeting := h.chatService.StartSession()
	response.CreatedJSON(w, dto.SessionDTO{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
		Greeting:  greeting,
	})
}

func (h *ChatHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Close(chi.URLParam(r, SessionIDParam)) {
		writeError(w, service.ErrSessionNotFound)
		return
	}
	response.SuccessJSON(w, nil)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatService.History(chi.URLParam(r, SessionIDParam))
	if err != nil {
		writeError(w, err)
		return
	}
	response.SuccessJSON(w, messages)
}

// SendMessage 助理失敗時仍回傳 200，回覆內容為替代訊息
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMessageDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadRequestBody)
		return
	}

	result, err := h.chatService.Send(r.Context(), chi.URLParam(r, SessionIDParam), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	response.SuccessJSON(w, result)
}

func (h *ChatHandler) SelectQuickOption(w http.ResponseWriter, r *http.Request) {
	result, err := h.chatService.SelectQuickOption(r.Context(), chi.URLParam(r, SessionIDParam), chi.URLParam(r, QuickOptionParam))
	if err != nil {
		writeError(w, err)
		return
	}
	response.SuccessJSON(w, result)
}
