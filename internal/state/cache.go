package state

import (
	"sync"

	"concord/internal/model"
)

// memberKey addresses a membership record, which is unique per guild and
// user rather than by a single snowflake.
type memberKey struct {
	guildID model.Snowflake
	userID  model.Snowflake
}

// Cache is the thread-safe entity snapshot.
type Cache struct {
	mu sync.RWMutex

	guilds   map[model.Snowflake]*model.Guild
	channels map[model.Snowflake]*model.Channel
	users    map[model.Snowflake]*model.User
	members  map[memberKey]*model.Member
	roles    map[model.Snowflake]*model.Role
	messages map[model.Snowflake]*model.Message
	emojis   map[model.Snowflake]*model.Emoji
	webhooks map[model.Snowflake]*model.Webhook

	presences map[memberKey]*model.Presence
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		guilds:    make(map[model.Snowflake]*model.Guild),
		channels:  make(map[model.Snowflake]*model.Channel),
		users:     make(map[model.Snowflake]*model.User),
		members:   make(map[memberKey]*model.Member),
		roles:     make(map[model.Snowflake]*model.Role),
		messages:  make(map[model.Snowflake]*model.Message),
		emojis:    make(map[model.Snowflake]*model.Emoji),
		webhooks:  make(map[model.Snowflake]*model.Webhook),
		presences: make(map[memberKey]*model.Presence),
	}
}

// -----------------------------------------------------------------------------
// Lookups
// -----------------------------------------------------------------------------

// Guild returns a copy of the cached guild.
func (c *Cache) Guild(id model.Snowflake) (model.Guild, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, ok := c.guilds[id]
	if !ok {
		return model.Guild{}, false
	}
	return g.Clone(), true
}

// Channel returns a copy of the cached channel.
func (c *Cache) Channel(id model.Snowflake) (model.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ch, ok := c.channels[id]
	if !ok {
		return model.Channel{}, false
	}
	return ch.Clone(), true
}

// ChannelGuild resolves a channel's owning guild by ID at read time.
func (c *Cache) ChannelGuild(channelID model.Snowflake) (model.Guild, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ch, ok := c.channels[channelID]
	if !ok {
		return model.Guild{}, false
	}
	g, ok := c.guilds[ch.GuildID]
	if !ok {
		return model.Guild{}, false
	}
	return g.Clone(), true
}

// User returns a copy of the cached user.
func (c *Cache) User(id model.Snowflake) (model.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.users[id]
	if !ok {
		return model.User{}, false
	}
	return u.Clone(), true
}

// Member returns a copy of the cached membership record.
func (c *Cache) Member(guildID, userID model.Snowflake) (model.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.members[memberKey{guildID, userID}]
	if !ok {
		return model.Member{}, false
	}
	return m.Clone(), true
}

// Role returns a copy of the cached role.
func (c *Cache) Role(id model.Snowflake) (model.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.roles[id]
	if !ok {
		return model.Role{}, false
	}
	return r.Clone(), true
}

// Message returns a copy of the cached message.
func (c *Cache) Message(id model.Snowflake) (model.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.messages[id]
	if !ok {
		return model.Message{}, false
	}
	return m.Clone(), true
}

// Emoji returns a copy of the cached emoji.
func (c *Cache) Emoji(id model.Snowflake) (model.Emoji, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.emojis[id]
	if !ok {
		return model.Emoji{}, false
	}
	out := *e
	if e.Roles != nil {
		out.Roles = append([]model.Snowflake(nil), e.Roles...)
	}
	return out, true
}

// Webhook returns a copy of the cached webhook.
func (c *Cache) Webhook(id model.Snowflake) (model.Webhook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	w, ok := c.webhooks[id]
	if !ok {
		return model.Webhook{}, false
	}
	return *w, true
}

// Presence returns a copy of the cached presence.
func (c *Cache) Presence(guildID, userID model.Snowflake) (model.Presence, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.presences[memberKey{guildID, userID}]
	if !ok {
		return model.Presence{}, false
	}
	return *p, true
}

// GuildChannels returns copies of the channels owned by a guild.
func (c *Cache) GuildChannels(guildID model.Snowflake) []model.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.Channel
	for _, ch := range c.channels {
		if ch.GuildID == guildID {
			out = append(out, ch.Clone())
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Upserts
// -----------------------------------------------------------------------------

// UpsertGuild stores a guild and returns the prior snapshot, if any. The
// previous snapshot is cloned before the stored entity is replaced.
func (c *Cache) UpsertGuild(g model.Guild) (model.Guild, *model.Guild) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *model.Guild
	if old, ok := c.guilds[g.ID]; ok {
		snap := old.Clone()
		prev = &snap
	}
	stored := g.Clone()
	c.guilds[g.ID] = &stored
	return stored.Clone(), prev
}

// UpsertChannel stores a channel and returns the prior snapshot, if any.
func (c *Cache) UpsertChannel(ch model.Channel) (model.Channel, *model.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *model.Channel
	if old, ok := c.channels[ch.ID]; ok {
		snap := old.Clone()
		prev = &snap
	}
	stored := ch.Clone()
	c.channels[ch.ID] = &stored
	return stored.Clone(), prev
}

// UpsertUser stores a user and returns the prior snapshot, if any.
func (c *Cache) UpsertUser(u model.User) (model.User, *model.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *model.User
	if old, ok := c.users[u.ID]; ok {
		snap := old.Clone()
		prev = &snap
	}
	stored := u.Clone()
	c.users[u.ID] = &stored
	return stored.Clone(), prev
}

// UpsertMember stores a membership record and returns the prior snapshot,
// if any.
func (c *Cache) UpsertMember(m model.Member) (model.Member, *model.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := memberKey{m.GuildID, m.User.ID}
	var prev *model.Member
	if old, ok := c.members[key]; ok {
		snap := old.Clone()
		prev = &snap
	}
	stored := m.Clone()
	c.members[key] = &stored
	return stored.Clone(), prev
}

// UpsertRole stores a role and returns the prior snapshot, if any.
func (c *Cache) UpsertRole(r model.Role) (model.Role, *model.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *model.Role
	if old, ok := c.roles[r.ID]; ok {
		snap := old.Clone()
		prev = &snap
	}
	stored := r.Clone()
	c.roles[r.ID] = &stored
	return stored.Clone(), prev
}

// UpsertMessage stores a message and returns the prior snapshot, if any.
// Partial message updates should be merged by the caller before upserting;
// the stored entity always reflects the argument exactly.
func (c *Cache) UpsertMessage(m model.Message) (model.Message, *model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *model.Message
	if old, ok := c.messages[m.ID]; ok {
		snap := old.Clone()
		prev = &snap
	}
	stored := m.Clone()
	c.messages[m.ID] = &stored
	return stored.Clone(), prev
}

// UpsertEmoji stores an emoji and returns the prior snapshot, if any.
func (c *Cache) UpsertEmoji(e model.Emoji) (model.Emoji, *model.Emoji) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *model.Emoji
	if old, ok := c.emojis[e.ID]; ok {
		snap := *old
		snap.Roles = append([]model.Snowflake(nil), old.Roles...)
		prev = &snap
	}
	stored := e
	stored.Roles = append([]model.Snowflake(nil), e.Roles...)
	c.emojis[e.ID] = &stored
	return stored, prev
}

// UpsertWebhook stores a webhook and returns the prior snapshot, if any.
func (c *Cache) UpsertWebhook(w model.Webhook) (model.Webhook, *model.Webhook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prev *model.Webhook
	if old, ok := c.webhooks[w.ID]; ok {
		snap := *old
		prev = &snap
	}
	stored := w
	c.webhooks[w.ID] = &stored
	return stored, prev
}

// UpsertPresence stores a presence and returns the prior snapshot, if any.
func (c *Cache) UpsertPresence(p model.Presence) (model.Presence, *model.Presence) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := memberKey{p.GuildID, p.UserID}
	var prev *model.Presence
	if old, ok := c.presences[key]; ok {
		snap := *old
		prev = &snap
	}
	stored := p
	c.presences[key] = &stored
	return stored, prev
}

// -----------------------------------------------------------------------------
// Removals
// -----------------------------------------------------------------------------

// RemoveGuild deletes a guild and everything it owns: channels, members,
// roles, emojis, presences and messages in its channels. A second removal
// of the same ID reports ok=false and changes nothing.
func (c *Cache) RemoveGuild(id model.Snowflake) (model.Guild, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.guilds[id]
	if !ok {
		return model.Guild{}, false
	}
	removed := g.Clone()
	delete(c.guilds, id)

	for chID, ch := range c.channels {
		if ch.GuildID != id {
			continue
		}
		delete(c.channels, chID)
		for msgID, msg := range c.messages {
			if msg.ChannelID == chID {
				delete(c.messages, msgID)
			}
		}
	}
	for key := range c.members {
		if key.guildID == id {
			delete(c.members, key)
		}
	}
	for key := range c.presences {
		if key.guildID == id {
			delete(c.presences, key)
		}
	}
	for rID, r := range c.roles {
		if r.GuildID == id {
			delete(c.roles, rID)
		}
	}
	for eID, e := range c.emojis {
		if e.GuildID == id {
			delete(c.emojis, eID)
		}
	}
	for wID, w := range c.webhooks {
		if w.GuildID == id {
			delete(c.webhooks, wID)
		}
	}

	return removed, true
}

// RemoveChannel deletes a channel and the messages cached under it.
func (c *Cache) RemoveChannel(id model.Snowflake) (model.Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.channels[id]
	if !ok {
		return model.Channel{}, false
	}
	removed := ch.Clone()
	delete(c.channels, id)

	for msgID, msg := range c.messages {
		if msg.ChannelID == id {
			delete(c.messages, msgID)
		}
	}

	return removed, true
}

// RemoveMember deletes a membership record.
func (c *Cache) RemoveMember(guildID, userID model.Snowflake) (model.Member, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := memberKey{guildID, userID}
	m, ok := c.members[key]
	if !ok {
		return model.Member{}, false
	}
	removed := m.Clone()
	delete(c.members, key)
	return removed, true
}

// RemoveRole deletes a role.
func (c *Cache) RemoveRole(id model.Snowflake) (model.Role, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.roles[id]
	if !ok {
		return model.Role{}, false
	}
	removed := r.Clone()
	delete(c.roles, id)
	return removed, true
}

// RemoveMessage deletes a message.
func (c *Cache) RemoveMessage(id model.Snowflake) (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.messages[id]
	if !ok {
		return model.Message{}, false
	}
	removed := m.Clone()
	delete(c.messages, id)
	return removed, true
}

// RemoveWebhook deletes a webhook.
func (c *Cache) RemoveWebhook(id model.Snowflake) (model.Webhook, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.webhooks[id]
	if !ok {
		return model.Webhook{}, false
	}
	removed := *w
	delete(c.webhooks, id)
	return removed, true
}

// SetGuildAvailable flips a guild's availability flag in place. Entities
// under an unavailable guild stay cached; the same guild may come back
// with a full resync.
func (c *Cache) SetGuildAvailable(id model.Snowflake, available bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.guilds[id]
	if !ok {
		return false
	}
	g.Available = available
	return true
}
