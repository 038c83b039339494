package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"concord/internal/model"
)

// SendOptions carries the optional parts of an outgoing message.
type SendOptions struct {
	Content string
	TTS     bool
	Embed   *model.Embed
}

// SendMessage posts a plain text message to a channel.
func (c *Client) SendMessage(ctx context.Context, channel model.EntityRef, content string) (*model.Message, error) {
	return c.SendMessageComplex(ctx, channel, SendOptions{Content: content})
}

// SendMessageComplex posts a message with full options.
func (c *Client) SendMessageComplex(ctx context.Context, channel model.EntityRef, opts SendOptions) (*model.Message, error) {
	path := "/channels/" + channel.EntityID().String() + "/messages"

	body := map[string]any{
		"content": opts.Content,
	}
	if opts.TTS {
		body["tts"] = true
	}
	if opts.Embed != nil {
		body["embed"] = opts.Embed
	}

	var msg model.Message
	if err := c.doJSON(ctx, Request{
		Method: http.MethodPost,
		Route:  http.MethodPost + ":" + path,
		Path:   path,
		JSON:   body,
	}, &msg); err != nil {
		return nil, fmt.Errorf("send message to %s: %w", channel.EntityID(), err)
	}
	return &msg, nil
}

// SendFile posts a message with one attached file. The pre-emptive
// rate-limit wait is skipped for file uploads; a rejected attempt is
// acceptable to keep the upload path low-latency.
func (c *Client) SendFile(ctx context.Context, channel model.EntityRef, filename string, r io.Reader, opts SendOptions) (*model.Message, error) {
	path := "/channels/" + channel.EntityID().String() + "/messages"

	fields := map[string]string{}
	if opts.Content != "" {
		fields["content"] = opts.Content
	}

	var msg model.Message
	if err := c.doJSON(ctx, Request{
		Method: http.MethodPost,
		Route:  http.MethodPost + ":" + path,
		Path:   path,
		Fields: fields,
		Files:  []File{{Name: filename, Reader: r}},
		Embed:  opts.Embed,
	}, &msg); err != nil {
		return nil, fmt.Errorf("send file to %s: %w", channel.EntityID(), err)
	}
	return &msg, nil
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(ctx context.Context, channel, message model.EntityRef, content string) (*model.Message, error) {
	path := "/channels/" + channel.EntityID().String() + "/messages/" + message.EntityID().String()

	var msg model.Message
	if err := c.doJSON(ctx, Request{
		Method: http.MethodPatch,
		Route:  http.MethodPatch + ":" + path,
		Path:   path,
		JSON:   map[string]any{"content": content},
	}, &msg); err != nil {
		return nil, fmt.Errorf("edit message %s: %w", message.EntityID(), err)
	}
	return &msg, nil
}

// DeleteMessage deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, channel, message model.EntityRef) error {
	path := "/channels/" + channel.EntityID().String() + "/messages/" + message.EntityID().String()

	if err := c.doJSON(ctx, Request{
		Method: http.MethodDelete,
		Route:  http.MethodDelete + ":" + path,
		Path:   path,
	}, nil); err != nil {
		return fmt.Errorf("delete message %s: %w", message.EntityID(), err)
	}
	return nil
}
