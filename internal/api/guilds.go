package api

import (
	"context"
	"fmt"
	"net/http"

	"concord/internal/model"
)

// GetGuild fetches a guild.
func (c *Client) GetGuild(ctx context.Context, guild model.EntityRef) (*model.Guild, error) {
	path := "/guilds/" + guild.EntityID().String()

	var g model.Guild
	if err := c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":" + path,
		Path:   path,
	}, &g); err != nil {
		return nil, fmt.Errorf("get guild %s: %w", guild.EntityID(), err)
	}
	return &g, nil
}

// GetGuildChannels fetches all channels of a guild.
func (c *Client) GetGuildChannels(ctx context.Context, guild model.EntityRef) ([]model.Channel, error) {
	path := "/guilds/" + guild.EntityID().String() + "/channels"

	var channels []model.Channel
	if err := c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":" + path,
		Path:   path,
	}, &channels); err != nil {
		return nil, fmt.Errorf("get guild channels %s: %w", guild.EntityID(), err)
	}
	return channels, nil
}

// GetGuildRoles fetches all roles of a guild.
func (c *Client) GetGuildRoles(ctx context.Context, guild model.EntityRef) ([]model.Role, error) {
	path := "/guilds/" + guild.EntityID().String() + "/roles"

	var roles []model.Role
	if err := c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":" + path,
		Path:   path,
	}, &roles); err != nil {
		return nil, fmt.Errorf("get guild roles %s: %w", guild.EntityID(), err)
	}
	return roles, nil
}

// GetGuildMember fetches one membership record.
func (c *Client) GetGuildMember(ctx context.Context, guild, user model.EntityRef) (*model.Member, error) {
	path := "/guilds/" + guild.EntityID().String() + "/members/" + user.EntityID().String()

	var m model.Member
	if err := c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":" + path,
		Path:   path,
	}, &m); err != nil {
		return nil, fmt.Errorf("get guild member %s/%s: %w", guild.EntityID(), user.EntityID(), err)
	}
	m.GuildID = guild.EntityID()
	return &m, nil
}
