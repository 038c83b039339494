package model

import "time"

// -----------------------------------------------------------------------------
// Container Types
// -----------------------------------------------------------------------------

// Guild is a server-side community and the container for most other entities.
type Guild struct {
	ID          Snowflake `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	OwnerID     Snowflake `json:"owner_id"`
	Region      string    `json:"region"`
	AFKTimeout  int       `json:"afk_timeout"`
	MemberCount int       `json:"member_count"`
	Large       bool      `json:"large"`
	JoinedAt    time.Time `json:"joined_at"`

	// Available is false while the upstream reports the guild as
	// unavailable (outage or pending resync). Entities under an
	// unavailable guild are retained, not purged.
	Available bool `json:"-"`
}

func (g Guild) EntityID() Snowflake { return g.ID }

// Clone returns a deep copy.
func (g Guild) Clone() Guild {
	return g
}

// ChannelType discriminates guild text/voice channels and direct messages.
type ChannelType int

const (
	ChannelTypeGuildText ChannelType = iota
	ChannelTypeDM
	ChannelTypeGuildVoice
	ChannelTypeGroupDM
	ChannelTypeGuildCategory
)

// Channel is a messaging or voice channel, either guild-owned or a DM.
type Channel struct {
	ID            Snowflake   `json:"id"`
	GuildID       Snowflake   `json:"guild_id"`
	Name          string      `json:"name"`
	Topic         string      `json:"topic"`
	Type          ChannelType `json:"type"`
	Position      int         `json:"position"`
	NSFW          bool        `json:"nsfw"`
	LastMessageID Snowflake   `json:"last_message_id"`

	// Recipients is set only for DM and group-DM channels.
	Recipients []User `json:"recipients,omitempty"`
}

func (c Channel) EntityID() Snowflake { return c.ID }

// IsDM reports whether the channel is a direct-message channel.
func (c Channel) IsDM() bool {
	return c.Type == ChannelTypeDM || c.Type == ChannelTypeGroupDM
}

// Clone returns a deep copy.
func (c Channel) Clone() Channel {
	out := c
	if c.Recipients != nil {
		out.Recipients = make([]User, len(c.Recipients))
		copy(out.Recipients, c.Recipients)
	}
	return out
}

// -----------------------------------------------------------------------------
// Principal Types
// -----------------------------------------------------------------------------

// User is a service account, bot or human.
type User struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
	Avatar        string    `json:"avatar"`
	Bot           bool      `json:"bot"`
}

func (u User) EntityID() Snowflake { return u.ID }

// Clone returns a deep copy.
func (u User) Clone() User {
	return u
}

// Member is a user's per-guild membership record.
type Member struct {
	GuildID  Snowflake   `json:"guild_id"`
	User     User        `json:"user"`
	Nick     string      `json:"nick"`
	Roles    []Snowflake `json:"roles"`
	JoinedAt time.Time   `json:"joined_at"`
	Deaf     bool        `json:"deaf"`
	Mute     bool        `json:"mute"`
}

func (m Member) EntityID() Snowflake { return m.User.ID }

// Clone returns a deep copy.
func (m Member) Clone() Member {
	out := m
	if m.Roles != nil {
		out.Roles = make([]Snowflake, len(m.Roles))
		copy(out.Roles, m.Roles)
	}
	return out
}

// Role is a guild permission grouping.
type Role struct {
	ID          Snowflake `json:"id"`
	GuildID     Snowflake `json:"guild_id"`
	Name        string    `json:"name"`
	Color       int       `json:"color"`
	Position    int       `json:"position"`
	Permissions int64     `json:"permissions"`
	Hoist       bool      `json:"hoist"`
	Managed     bool      `json:"managed"`
	Mentionable bool      `json:"mentionable"`
}

func (r Role) EntityID() Snowflake { return r.ID }

// Clone returns a deep copy.
func (r Role) Clone() Role {
	return r
}

// Presence is a user's online status within a guild.
type Presence struct {
	UserID  Snowflake `json:"-"`
	GuildID Snowflake `json:"guild_id"`
	Status  string    `json:"status"`
	Game    string    `json:"game"`
}

// -----------------------------------------------------------------------------
// Content Types
// -----------------------------------------------------------------------------

// Message is a single message posted to a channel.
type Message struct {
	ID              Snowflake `json:"id"`
	ChannelID       Snowflake `json:"channel_id"`
	GuildID         Snowflake `json:"guild_id"`
	Author          User      `json:"author"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	EditedTimestamp time.Time `json:"edited_timestamp"`
	TTS             bool      `json:"tts"`
	MentionEveryone bool      `json:"mention_everyone"`
	Mentions        []User    `json:"mentions"`
	Embeds          []Embed   `json:"embeds"`
}

func (m Message) EntityID() Snowflake { return m.ID }

// Clone returns a deep copy.
func (m Message) Clone() Message {
	out := m
	if m.Mentions != nil {
		out.Mentions = make([]User, len(m.Mentions))
		copy(out.Mentions, m.Mentions)
	}
	if m.Embeds != nil {
		out.Embeds = make([]Embed, len(m.Embeds))
		for i, e := range m.Embeds {
			out.Embeds[i] = e.Clone()
		}
	}
	return out
}

// Emoji is a guild-scoped custom emoji.
type Emoji struct {
	ID            Snowflake   `json:"id"`
	GuildID       Snowflake   `json:"guild_id"`
	Name          string      `json:"name"`
	Roles         []Snowflake `json:"roles"`
	RequireColons bool        `json:"require_colons"`
	Managed       bool        `json:"managed"`
}

func (e Emoji) EntityID() Snowflake { return e.ID }

// Webhook posts messages to a channel under a fixed identity and token.
type Webhook struct {
	ID        Snowflake `json:"id"`
	GuildID   Snowflake `json:"guild_id"`
	ChannelID Snowflake `json:"channel_id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Token     string    `json:"token"`
}

func (w Webhook) EntityID() Snowflake { return w.ID }
