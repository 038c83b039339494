package dispatch

import (
	"encoding/json"

	"concord/internal/model"
)

// Event is a typed record fanned out to registered handlers. Update-class
// events carry a Before snapshot cloned strictly prior to the cache
// mutation.
type Event interface {
	eventName() string
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// SocketOpened fires when the underlying transport connects, before any
// protocol-level readiness.
type SocketOpened struct{}

// SocketClosed fires when the underlying transport drops, for any reason.
type SocketClosed struct{}

// Disconnected fires once the supervisor gives up reconnecting.
type Disconnected struct{}

// Ready carries the initial session snapshot.
type Ready struct {
	SessionID string        `json:"session_id"`
	User      model.User    `json:"user"`
	Guilds    []model.Guild `json:"guilds"`
}

// Resumed fires after a successful session resume.
type Resumed struct{}

func (SocketOpened) eventName() string { return "__SOCKET_OPENED__" }
func (SocketClosed) eventName() string { return "__SOCKET_CLOSED__" }
func (Disconnected) eventName() string { return "__DISCONNECTED__" }
func (Ready) eventName() string        { return "READY" }
func (Resumed) eventName() string      { return "RESUMED" }

// -----------------------------------------------------------------------------
// Guilds
// -----------------------------------------------------------------------------

// GuildCreate fires when a guild becomes known or available.
type GuildCreate struct {
	Guild model.Guild
}

// GuildUpdate fires when a guild's attributes change.
type GuildUpdate struct {
	Guild  model.Guild
	Before *model.Guild
}

// GuildDelete fires when a guild is removed or becomes unavailable. When
// Unavailable is true the guild and its entities stay cached with the
// availability flag lowered.
type GuildDelete struct {
	GuildID     model.Snowflake
	Unavailable bool
	Guild       *model.Guild // cached snapshot, nil if never seen
}

func (GuildCreate) eventName() string { return "GUILD_CREATE" }
func (GuildUpdate) eventName() string { return "GUILD_UPDATE" }
func (GuildDelete) eventName() string { return "GUILD_DELETE" }

// -----------------------------------------------------------------------------
// Channels
// -----------------------------------------------------------------------------

// ChannelCreate fires for new guild channels and DM channels.
type ChannelCreate struct {
	Channel model.Channel
}

// ChannelUpdate fires when a channel's attributes change.
type ChannelUpdate struct {
	Channel model.Channel
	Before  *model.Channel
}

// ChannelDelete fires when a channel is removed.
type ChannelDelete struct {
	Channel model.Channel
}

func (ChannelCreate) eventName() string { return "CHANNEL_CREATE" }
func (ChannelUpdate) eventName() string { return "CHANNEL_UPDATE" }
func (ChannelDelete) eventName() string { return "CHANNEL_DELETE" }

// -----------------------------------------------------------------------------
// Members and roles
// -----------------------------------------------------------------------------

// GuildMemberAdd fires when a user joins a guild.
type GuildMemberAdd struct {
	Member model.Member
}

// GuildMemberUpdate fires when a membership record changes.
type GuildMemberUpdate struct {
	Member model.Member
	Before *model.Member
}

// GuildMemberRemove fires when a user leaves or is removed.
type GuildMemberRemove struct {
	GuildID model.Snowflake
	User    model.User
	Member  *model.Member // cached snapshot, nil if never seen
}

func (GuildMemberAdd) eventName() string    { return "GUILD_MEMBER_ADD" }
func (GuildMemberUpdate) eventName() string { return "GUILD_MEMBER_UPDATE" }
func (GuildMemberRemove) eventName() string { return "GUILD_MEMBER_REMOVE" }

// GuildRoleCreate fires when a role is created.
type GuildRoleCreate struct {
	Role model.Role
}

// GuildRoleUpdate fires when a role changes.
type GuildRoleUpdate struct {
	Role   model.Role
	Before *model.Role
}

// GuildRoleDelete fires when a role is removed.
type GuildRoleDelete struct {
	GuildID model.Snowflake
	RoleID  model.Snowflake
	Role    *model.Role // cached snapshot, nil if never seen
}

func (GuildRoleCreate) eventName() string { return "GUILD_ROLE_CREATE" }
func (GuildRoleUpdate) eventName() string { return "GUILD_ROLE_UPDATE" }
func (GuildRoleDelete) eventName() string { return "GUILD_ROLE_DELETE" }

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

// MessageCreate fires for every new message.
type MessageCreate struct {
	Message model.Message
}

// MessageUpdate fires when a message is edited. The payload is a partial
// overlay; Message is the merged result and Before the pre-edit snapshot
// when the message was cached.
type MessageUpdate struct {
	Message model.Message
	Before  *model.Message
}

// MessageDelete fires when a message is removed. Only contextual IDs are
// guaranteed; Message is the cached snapshot when one existed.
type MessageDelete struct {
	MessageID model.Snowflake
	ChannelID model.Snowflake
	GuildID   model.Snowflake
	Message   *model.Message
}

func (MessageCreate) eventName() string { return "MESSAGE_CREATE" }
func (MessageUpdate) eventName() string { return "MESSAGE_UPDATE" }
func (MessageDelete) eventName() string { return "MESSAGE_DELETE" }

// -----------------------------------------------------------------------------
// Presence, emoji, webhooks
// -----------------------------------------------------------------------------

// PresenceUpdate fires when a user's status changes within a guild.
type PresenceUpdate struct {
	Presence model.Presence
	Before   *model.Presence
}

// GuildEmojisUpdate fires with a guild's full replacement emoji set.
type GuildEmojisUpdate struct {
	GuildID model.Snowflake
	Emojis  []model.Emoji
}

// WebhooksUpdate fires when a channel's webhooks change; only the
// contextual IDs are delivered.
type WebhooksUpdate struct {
	GuildID   model.Snowflake
	ChannelID model.Snowflake
}

func (PresenceUpdate) eventName() string    { return "PRESENCE_UPDATE" }
func (GuildEmojisUpdate) eventName() string { return "GUILD_EMOJIS_UPDATE" }
func (WebhooksUpdate) eventName() string    { return "WEBHOOKS_UPDATE" }

// -----------------------------------------------------------------------------
// Unknown
// -----------------------------------------------------------------------------

// Unknown carries a frame whose type the dispatcher does not recognize,
// so operators can detect protocol drift. It is also emitted for frames
// of a known type whose payload fails to decode.
type Unknown struct {
	Name string
	Raw  json.RawMessage
}

func (Unknown) eventName() string { return "__UNKNOWN__" }
