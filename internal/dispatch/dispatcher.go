package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"concord/internal/gateway"
	"concord/internal/model"
	"concord/internal/state"
)

// Handler receives one typed event.
type Handler func(Event)

// Stats counts dispatcher activity.
type Stats struct {
	Dispatched    int64
	UnknownEvents int64
	DecodeErrors  int64
}

// Dispatcher applies gateway frames to the entity cache and fans typed
// events out to registered handlers.
type Dispatcher struct {
	cache  *state.Cache
	logger *slog.Logger

	handlerMu sync.RWMutex
	handlers  map[string][]Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewDispatcher creates a dispatcher writing to the given cache.
func NewDispatcher(cache *state.Cache, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		cache:    cache,
		logger:   logger,
		handlers: make(map[string][]Handler),
	}
}

// On registers a handler for one event type. Handlers run on the dispatch
// goroutine in registration order; a slow handler delays subsequent
// events, never concurrent REST calls.
func On[T Event](d *Dispatcher, fn func(T)) {
	var zero T
	name := zero.eventName()

	d.handlerMu.Lock()
	defer d.handlerMu.Unlock()
	d.handlers[name] = append(d.handlers[name], func(e Event) {
		fn(e.(T))
	})
}

// Start consumes the frame channel on a single goroutine, preserving
// arrival order.
func (d *Dispatcher) Start(ctx context.Context, frames <-chan gateway.Frame) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.ctx.Done():
				return
			case f, ok := <-frames:
				if !ok {
					return
				}
				d.Dispatch(f)
			}
		}
	}()

	d.logger.Info("event dispatcher started")
	return nil
}

// Stop halts frame consumption.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("event dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of dispatch counters.
func (d *Dispatcher) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// Dispatch processes one frame synchronously: decode, mutate the cache,
// invoke handlers. A frame that cannot be decoded degrades to an Unknown
// event; it never halts the stream.
func (d *Dispatcher) Dispatch(f gateway.Frame) {
	event := d.apply(f)

	d.statsMu.Lock()
	d.stats.Dispatched++
	if _, ok := event.(Unknown); ok {
		d.stats.UnknownEvents++
	}
	d.statsMu.Unlock()

	d.emit(event)
}

// emit invokes the handlers registered for the event's type, in
// registration order. Unrecognized or undecodable frames reach the
// handlers registered for Unknown regardless of the frame name.
func (d *Dispatcher) emit(event Event) {
	d.handlerMu.RLock()
	handlers := d.handlers[event.eventName()]
	d.handlerMu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// apply decodes a frame and performs its cache mutation, returning the
// typed record to fan out.
func (d *Dispatcher) apply(f gateway.Frame) Event {
	switch f.Name {
	case gateway.FrameSocketOpened:
		return SocketOpened{}
	case gateway.FrameSocketClosed:
		return SocketClosed{}
	case gateway.FrameDisconnected:
		return Disconnected{}

	case "READY":
		return d.applyReady(f)
	case "RESUMED":
		return Resumed{}

	case "GUILD_CREATE":
		return d.applyGuildCreate(f)
	case "GUILD_UPDATE":
		return d.applyGuildUpdate(f)
	case "GUILD_DELETE":
		return d.applyGuildDelete(f)

	case "CHANNEL_CREATE", "CHANNEL_UPDATE", "CHANNEL_DELETE":
		return d.applyChannel(f)

	case "GUILD_MEMBER_ADD", "GUILD_MEMBER_UPDATE":
		return d.applyMemberUpsert(f)
	case "GUILD_MEMBER_REMOVE":
		return d.applyMemberRemove(f)

	case "GUILD_ROLE_CREATE", "GUILD_ROLE_UPDATE":
		return d.applyRoleUpsert(f)
	case "GUILD_ROLE_DELETE":
		return d.applyRoleDelete(f)

	case "MESSAGE_CREATE":
		return d.applyMessageCreate(f)
	case "MESSAGE_UPDATE":
		return d.applyMessageUpdate(f)
	case "MESSAGE_DELETE":
		return d.applyMessageDelete(f)

	case "PRESENCE_UPDATE":
		return d.applyPresence(f)
	case "GUILD_EMOJIS_UPDATE":
		return d.applyEmojis(f)
	case "WEBHOOKS_UPDATE":
		return d.applyWebhooks(f)
	}

	d.logger.Warn("unrecognized gateway event", "name", f.Name, "size", len(f.Data))
	return Unknown{Name: f.Name, Raw: f.Data}
}

// degrade logs a decode failure and returns the Unknown fallback.
func (d *Dispatcher) degrade(f gateway.Frame, err error) Event {
	d.statsMu.Lock()
	d.stats.DecodeErrors++
	d.statsMu.Unlock()

	d.logger.Warn("undecodable event payload", "name", f.Name, "error", err)
	return Unknown{Name: f.Name, Raw: f.Data}
}

// guildData is the wire form of a guild with its nested entities.
type guildData struct {
	model.Guild
	Unavailable bool            `json:"unavailable"`
	Channels    []model.Channel `json:"channels"`
	Members     []model.Member  `json:"members"`
	Roles       []model.Role    `json:"roles"`
	Emojis      []model.Emoji   `json:"emojis"`
}

// storeGuild upserts a guild and everything nested in its payload.
func (d *Dispatcher) storeGuild(g guildData) model.Guild {
	guild := g.Guild
	guild.Available = !g.Unavailable

	stored, _ := d.cache.UpsertGuild(guild)

	for _, ch := range g.Channels {
		ch.GuildID = guild.ID
		d.cache.UpsertChannel(ch)
	}
	for _, m := range g.Members {
		m.GuildID = guild.ID
		d.cache.UpsertMember(m)
		d.cache.UpsertUser(m.User)
	}
	for _, r := range g.Roles {
		r.GuildID = guild.ID
		d.cache.UpsertRole(r)
	}
	for _, e := range g.Emojis {
		e.GuildID = guild.ID
		d.cache.UpsertEmoji(e)
	}

	return stored
}

func (d *Dispatcher) applyReady(f gateway.Frame) Event {
	var data struct {
		SessionID string      `json:"session_id"`
		User      model.User  `json:"user"`
		Guilds    []guildData `json:"guilds"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	d.cache.UpsertUser(data.User)

	ev := Ready{SessionID: data.SessionID, User: data.User}
	for _, g := range data.Guilds {
		ev.Guilds = append(ev.Guilds, d.storeGuild(g))
	}
	return ev
}

func (d *Dispatcher) applyGuildCreate(f gateway.Frame) Event {
	var g guildData
	if err := json.Unmarshal(f.Data, &g); err != nil {
		return d.degrade(f, err)
	}
	return GuildCreate{Guild: d.storeGuild(g)}
}

func (d *Dispatcher) applyGuildUpdate(f gateway.Frame) Event {
	var g guildData
	if err := json.Unmarshal(f.Data, &g); err != nil {
		return d.degrade(f, err)
	}

	guild := g.Guild
	// Availability is cache state, not wire state; keep the cached flag.
	if cached, ok := d.cache.Guild(guild.ID); ok {
		guild.Available = cached.Available
	} else {
		guild.Available = !g.Unavailable
	}

	stored, before := d.cache.UpsertGuild(guild)
	return GuildUpdate{Guild: stored, Before: before}
}

func (d *Dispatcher) applyGuildDelete(f gateway.Frame) Event {
	var data struct {
		ID          model.Snowflake `json:"id"`
		Unavailable bool            `json:"unavailable"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	ev := GuildDelete{GuildID: data.ID, Unavailable: data.Unavailable}

	if data.Unavailable {
		// Outage, not removal: flag the guild and keep its entities for
		// the eventual resync.
		if cached, ok := d.cache.Guild(data.ID); ok {
			ev.Guild = &cached
		}
		d.cache.SetGuildAvailable(data.ID, false)
		return ev
	}

	if removed, ok := d.cache.RemoveGuild(data.ID); ok {
		ev.Guild = &removed
	}
	return ev
}

func (d *Dispatcher) applyChannel(f gateway.Frame) Event {
	var ch model.Channel
	if err := json.Unmarshal(f.Data, &ch); err != nil {
		return d.degrade(f, err)
	}

	switch f.Name {
	case "CHANNEL_CREATE":
		stored, _ := d.cache.UpsertChannel(ch)
		return ChannelCreate{Channel: stored}
	case "CHANNEL_UPDATE":
		stored, before := d.cache.UpsertChannel(ch)
		return ChannelUpdate{Channel: stored, Before: before}
	default: // CHANNEL_DELETE
		if removed, ok := d.cache.RemoveChannel(ch.ID); ok {
			return ChannelDelete{Channel: removed}
		}
		return ChannelDelete{Channel: ch}
	}
}

func (d *Dispatcher) applyMemberUpsert(f gateway.Frame) Event {
	var m model.Member
	if err := json.Unmarshal(f.Data, &m); err != nil {
		return d.degrade(f, err)
	}

	stored, before := d.cache.UpsertMember(m)
	d.cache.UpsertUser(m.User)

	if f.Name == "GUILD_MEMBER_ADD" {
		return GuildMemberAdd{Member: stored}
	}
	return GuildMemberUpdate{Member: stored, Before: before}
}

func (d *Dispatcher) applyMemberRemove(f gateway.Frame) Event {
	var data struct {
		GuildID model.Snowflake `json:"guild_id"`
		User    model.User      `json:"user"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	ev := GuildMemberRemove{GuildID: data.GuildID, User: data.User}
	if removed, ok := d.cache.RemoveMember(data.GuildID, data.User.ID); ok {
		ev.Member = &removed
	}
	return ev
}

func (d *Dispatcher) applyRoleUpsert(f gateway.Frame) Event {
	var data struct {
		GuildID model.Snowflake `json:"guild_id"`
		Role    model.Role      `json:"role"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	role := data.Role
	role.GuildID = data.GuildID
	stored, before := d.cache.UpsertRole(role)

	if f.Name == "GUILD_ROLE_CREATE" {
		return GuildRoleCreate{Role: stored}
	}
	return GuildRoleUpdate{Role: stored, Before: before}
}

func (d *Dispatcher) applyRoleDelete(f gateway.Frame) Event {
	var data struct {
		GuildID model.Snowflake `json:"guild_id"`
		RoleID  model.Snowflake `json:"role_id"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	ev := GuildRoleDelete{GuildID: data.GuildID, RoleID: data.RoleID}
	if removed, ok := d.cache.RemoveRole(data.RoleID); ok {
		ev.Role = &removed
	}
	return ev
}

func (d *Dispatcher) applyMessageCreate(f gateway.Frame) Event {
	var msg model.Message
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		return d.degrade(f, err)
	}

	// Some payloads omit guild_id; resolve it through the cached channel
	// when possible. An unknown channel still yields a usable event.
	if msg.GuildID == 0 {
		if ch, ok := d.cache.Channel(msg.ChannelID); ok {
			msg.GuildID = ch.GuildID
		}
	}

	stored, _ := d.cache.UpsertMessage(msg)
	d.cache.UpsertUser(msg.Author)
	return MessageCreate{Message: stored}
}

func (d *Dispatcher) applyMessageUpdate(f gateway.Frame) Event {
	var incoming model.Message
	if err := json.Unmarshal(f.Data, &incoming); err != nil {
		return d.degrade(f, err)
	}

	// Edits arrive as partial payloads: overlay the raw JSON onto a clone
	// of the cached message so absent fields keep their prior values.
	merged := incoming
	if cached, ok := d.cache.Message(incoming.ID); ok {
		merged = cached.Clone()
		if err := json.Unmarshal(f.Data, &merged); err != nil {
			return d.degrade(f, err)
		}
	}
	if merged.GuildID == 0 {
		if ch, ok := d.cache.Channel(merged.ChannelID); ok {
			merged.GuildID = ch.GuildID
		}
	}

	stored, before := d.cache.UpsertMessage(merged)
	return MessageUpdate{Message: stored, Before: before}
}

func (d *Dispatcher) applyMessageDelete(f gateway.Frame) Event {
	var data struct {
		ID        model.Snowflake `json:"id"`
		ChannelID model.Snowflake `json:"channel_id"`
		GuildID   model.Snowflake `json:"guild_id"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	ev := MessageDelete{MessageID: data.ID, ChannelID: data.ChannelID, GuildID: data.GuildID}
	if removed, ok := d.cache.RemoveMessage(data.ID); ok {
		ev.Message = &removed
		if ev.ChannelID == 0 {
			ev.ChannelID = removed.ChannelID
		}
	}
	return ev
}

func (d *Dispatcher) applyPresence(f gateway.Frame) Event {
	var data struct {
		User    model.User      `json:"user"`
		GuildID model.Snowflake `json:"guild_id"`
		Status  string          `json:"status"`
		Game    struct {
			Name string `json:"name"`
		} `json:"game"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	p := model.Presence{
		UserID:  data.User.ID,
		GuildID: data.GuildID,
		Status:  data.Status,
		Game:    data.Game.Name,
	}
	stored, before := d.cache.UpsertPresence(p)
	return PresenceUpdate{Presence: stored, Before: before}
}

func (d *Dispatcher) applyEmojis(f gateway.Frame) Event {
	var data struct {
		GuildID model.Snowflake `json:"guild_id"`
		Emojis  []model.Emoji   `json:"emojis"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}

	for i := range data.Emojis {
		data.Emojis[i].GuildID = data.GuildID
		d.cache.UpsertEmoji(data.Emojis[i])
	}
	return GuildEmojisUpdate{GuildID: data.GuildID, Emojis: data.Emojis}
}

func (d *Dispatcher) applyWebhooks(f gateway.Frame) Event {
	var data struct {
		GuildID   model.Snowflake `json:"guild_id"`
		ChannelID model.Snowflake `json:"channel_id"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		return d.degrade(f, err)
	}
	return WebhooksUpdate{GuildID: data.GuildID, ChannelID: data.ChannelID}
}
