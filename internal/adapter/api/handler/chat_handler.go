package handler

import (
	"github.com/labstack/echo/v4"

	"circulapp/internal/domain/entity"
	"circulapp/internal/usecase"
	"circulapp/pkg/response"
	"circulapp/pkg/utils"
)

const (
	defaultChatPageSize    = 20
	maxChatPageSize        = 50
	defaultMessagePageSize = 50
	maxMessagePageSize     = 100
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startChatRequest struct {
	ProductID string `json:"productId" validate:"omitempty,mongoid"`
	UserID    string `json:"userId" validate:"omitempty,mongoid"`
	Message   string `json:"message"`
	ChatType  string `json:"chatType" validate:"omitempty,oneof=direct group product_inquiry"`
}

type attachmentRequest struct {
	Type       string `json:"type" validate:"omitempty,oneof=image document audio video"`
	URL        string `json:"url" validate:"required,url"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size" validate:"min=0"`
	Mimetype   string `json:"mimetype"`
	ExternalID string `json:"externalId"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Address   string  `json:"address"`
}

// Content length, attachment count and per-type rules are checked by the
// message itself so they surface as INVALID_MESSAGE.
type sendMessageRequest struct {
	Content     string              `json:"content"`
	MessageType string              `json:"messageType"`
	Attachments []attachmentRequest `json:"attachments" validate:"dive"`
	Location    *locationRequest    `json:"location"`
	ReplyTo     string              `json:"replyTo" validate:"omitempty,mongoid"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type reactRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

type archiveRequest struct {
	Archive *bool `json:"archive" validate:"required"`
}

type startChatResponse struct {
	Message string              `json:"message"`
	Chat    *entity.ChatSummary `json:"chat"`
	Created bool                `json:"created"`
}

type chatListResponse struct {
	Chats      []entity.ChatSummary `json:"chats"`
	Pagination response.Pagination  `json:"pagination"`
}

type chatResponse struct {
	Chat *entity.ChatSummary `json:"chat"`
}

type messageListResponse struct {
	Messages   []entity.MessageView `json:"messages"`
	Pagination response.Pagination  `json:"pagination"`
	ChatInfo   entity.ChatInfo      `json:"chatInfo"`
}

type sentMessageResponse struct {
	Message    string              `json:"message"`
	NewMessage *entity.MessageView `json:"newMessage"`
}

type editedMessageResponse struct {
	Message       string              `json:"message"`
	EditedMessage *entity.MessageView `json:"editedMessage"`
}

type messageResponse struct {
	Message *entity.MessageView `json:"message"`
}

type reactionResponse struct {
	Message   string            `json:"message"`
	Reactions []entity.Reaction `json:"reactions"`
}

func (h *ChatHandler) ListChats(c echo.Context) error {
	params, err := utils.GetPaginationParams(c, defaultChatPageSize, maxChatPageSize)
	if err != nil {
		return response.Error(c, err)
	}
	archived, err := utils.QueryBool(c, "archived")
	if err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chats, total, err := h.chatUseCase.ListChats(c.Request().Context(), userID, usecase.ListChatsInput{
		ChatType: c.QueryParam("type"),
		Archived: archived,
		Search:   c.QueryParam("search"),
		Offset:   params.Offset,
		Limit:    params.Limit,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chatListResponse{
		Chats:      chats,
		Pagination: response.NewPagination(params.Page, params.Limit, total),
	})
}

func (h *ChatHandler) StartChat(c echo.Context) error {
	var req startChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	result, err := h.chatUseCase.StartChat(c.Request().Context(), userID, usecase.StartChatInput{
		ProductID:      req.ProductID,
		UserID:         req.UserID,
		InitialMessage: req.Message,
		ChatType:       req.ChatType,
	})
	if err != nil {
		return response.Error(c, err)
	}

	message := "Chat found"
	if result.Created {
		message = "Chat started"
	}
	return response.Created(c, startChatResponse{
		Message: message,
		Chat:    result.Chat,
		Created: result.Created,
	})
}

func (h *ChatHandler) GetChat(c echo.Context) error {
	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetChat(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, chatResponse{Chat: chat})
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	params, err := utils.GetPaginationParams(c, defaultMessagePageSize, maxMessagePageSize)
	if err != nil {
		return response.Error(c, err)
	}
	before, err := utils.QueryTime(c, "before")
	if err != nil {
		return response.Error(c, err)
	}
	after, err := utils.QueryTime(c, "after")
	if err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	page, err := h.chatUseCase.ListMessages(c.Request().Context(), userID, c.Param("id"), usecase.ListMessagesInput{
		Before: before,
		After:  after,
		Offset: params.Offset,
		Limit:  params.Limit,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messageListResponse{
		Messages:   page.Messages,
		Pagination: response.NewPagination(params.Page, params.Limit, page.Total),
		ChatInfo:   page.ChatInfo,
	})
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	input := usecase.SendMessageInput{
		Content:     req.Content,
		MessageType: req.MessageType,
		ReplyTo:     req.ReplyTo,
	}
	for _, a := range req.Attachments {
		input.Attachments = append(input.Attachments, entity.Attachment{
			Type:       a.Type,
			URL:        a.URL,
			Filename:   a.Filename,
			Size:       a.Size,
			Mimetype:   a.Mimetype,
			ExternalID: a.ExternalID,
		})
	}
	if req.Location != nil {
		input.Location = &entity.Location{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Address:   req.Location.Address,
		}
	}

	userID := c.Get("uid").(string)

	msg, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, c.Param("id"), input)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, sentMessageResponse{Message: "Message sent", NewMessage: msg})
}

func (h *ChatHandler) GetMessage(c echo.Context) error {
	userID := c.Get("uid").(string)

	msg, err := h.chatUseCase.GetMessage(c.Request().Context(), userID, c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, messageResponse{Message: msg})
}

func (h *ChatHandler) EditMessage(c echo.Context) error {
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	msg, err := h.chatUseCase.EditMessage(c.Request().Context(), userID, c.Param("id"), c.Param("messageId"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, editedMessageResponse{Message: "Message edited", EditedMessage: msg})
}

func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.DeleteMessage(c.Request().Context(), userID, c.Param("id"), c.Param("messageId")); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Message deleted")
}

func (h *ChatHandler) ReactToMessage(c echo.Context) error {
	var req reactRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	result, err := h.chatUseCase.ReactToMessage(c.Request().Context(), userID, c.Param("id"), c.Param("messageId"), req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	message := "Reaction removed"
	if result.Added {
		message = "Reaction added"
	}
	return response.Success(c, reactionResponse{Message: message, Reactions: result.Reactions})
}

func (h *ChatHandler) MarkAsRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkAsRead(c.Request().Context(), userID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Message(c, "Chat marked as read")
}

func (h *ChatHandler) ArchiveChat(c echo.Context) error {
	var req archiveRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.chatUseCase.SetArchived(c.Request().Context(), userID, c.Param("id"), *req.Archive); err != nil {
		return response.Error(c, err)
	}

	message := "Chat unarchived"
	if *req.Archive {
		message = "Chat archived"
	}
	return response.Message(c, message)
}
