package api

import (
	"context"
	"fmt"
	"net/http"

	"concord/internal/model"
)

// CreateWebhook creates a webhook on a channel.
func (c *Client) CreateWebhook(ctx context.Context, channel model.EntityRef, name string) (*model.Webhook, error) {
	path := "/channels/" + channel.EntityID().String() + "/webhooks"

	var w model.Webhook
	if err := c.doJSON(ctx, Request{
		Method: http.MethodPost,
		Route:  http.MethodPost + ":" + path,
		Path:   path,
		JSON:   map[string]any{"name": name},
	}, &w); err != nil {
		return nil, fmt.Errorf("create webhook on %s: %w", channel.EntityID(), err)
	}
	return &w, nil
}

// ExecuteWebhook posts a message through a webhook using its token.
func (c *Client) ExecuteWebhook(ctx context.Context, webhook model.EntityRef, token string, opts SendOptions) error {
	path := "/webhooks/" + webhook.EntityID().String() + "/" + token

	body := map[string]any{
		"content": opts.Content,
	}
	if opts.Embed != nil {
		body["embeds"] = []*model.Embed{opts.Embed}
	}

	if err := c.doJSON(ctx, Request{
		Method: http.MethodPost,
		Route:  http.MethodPost + ":/webhooks/" + webhook.EntityID().String(),
		Path:   path,
		JSON:   body,
	}, nil); err != nil {
		return fmt.Errorf("execute webhook %s: %w", webhook.EntityID(), err)
	}
	return nil
}

// GetCurrentUser fetches the account the client is authenticated as.
func (c *Client) GetCurrentUser(ctx context.Context) (*model.User, error) {
	const path = "/users/@me"

	var u model.User
	if err := c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":" + path,
		Path:   path,
	}, &u); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &u, nil
}
