package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shoozy-shop/storefront/internal/shared/services/markdown"
)

const chatFallbackReply = "Xin lỗi, tôi không thể trả lời câu hỏi này."

// ChatReply is one chat-bot answer in both source and rendered form.
type ChatReply struct {
	Markdown string
	HTML     string
}

type ChatAPI struct {
	client   *Client
	renderer markdown.Renderer
}

func NewChatAPI(c *Client, r markdown.Renderer) *ChatAPI {
	if r == nil {
		r = markdown.NewRenderer()
	}
	return &ChatAPI{client: c, renderer: r}
}

func (a *ChatAPI) Send(ctx context.Context, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("chat message cannot be empty")
	}

	var resp struct {
		Response string `json:"response"`
	}
	body := map[string]string{"message": message}
	if err := a.client.DoRaw(ctx, http.MethodPost, "/chat/message", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("send chat message: %w", err)
	}

	text := resp.Response
	if strings.TrimSpace(text) == "" {
		text = chatFallbackReply
	}
	html, err := a.renderer.ToHTML(text)
	if err != nil {
		return nil, err
	}
	return &ChatReply{Markdown: text, HTML: html}, nil
}

// Health reports whether the chat service answers.
func (a *ChatAPI) Health(ctx context.Context) bool {
	return a.client.DoRaw(ctx, http.MethodGet, "/chat/health", nil, nil, nil) == nil
}
