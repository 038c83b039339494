package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"concord/internal/model"
)

// GetChannel fetches a channel.
func (c *Client) GetChannel(ctx context.Context, channel model.EntityRef) (*model.Channel, error) {
	path := "/channels/" + channel.EntityID().String()

	var ch model.Channel
	if err := c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":" + path,
		Path:   path,
	}, &ch); err != nil {
		return nil, fmt.Errorf("get channel %s: %w", channel.EntityID(), err)
	}
	return &ch, nil
}

// CreateChannel creates a guild channel.
func (c *Client) CreateChannel(ctx context.Context, guild model.EntityRef, name string, chType model.ChannelType) (*model.Channel, error) {
	path := "/guilds/" + guild.EntityID().String() + "/channels"

	var ch model.Channel
	if err := c.doJSON(ctx, Request{
		Method: http.MethodPost,
		Route:  http.MethodPost + ":" + path,
		Path:   path,
		JSON: map[string]any{
			"name": name,
			"type": chType,
		},
	}, &ch); err != nil {
		return nil, fmt.Errorf("create channel in %s: %w", guild.EntityID(), err)
	}
	return &ch, nil
}

// DeleteChannel deletes a channel.
func (c *Client) DeleteChannel(ctx context.Context, channel model.EntityRef) error {
	path := "/channels/" + channel.EntityID().String()

	if err := c.doJSON(ctx, Request{
		Method: http.MethodDelete,
		Route:  http.MethodDelete + ":" + path,
		Path:   path,
	}, nil); err != nil {
		return fmt.Errorf("delete channel %s: %w", channel.EntityID(), err)
	}
	return nil
}

// GetChannelMessages fetches up to limit recent messages of a channel.
func (c *Client) GetChannelMessages(ctx context.Context, channel model.EntityRef, limit int) ([]model.Message, error) {
	path := "/channels/" + channel.EntityID().String() + "/messages"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var msgs []model.Message
	if err := c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":/channels/" + channel.EntityID().String() + "/messages",
		Path:   path,
	}, &msgs); err != nil {
		return nil, fmt.Errorf("get channel messages %s: %w", channel.EntityID(), err)
	}
	return msgs, nil
}
