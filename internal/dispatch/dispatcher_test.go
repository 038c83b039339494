package dispatch

import (
	"encoding/json"
	"testing"

	"concord/internal/gateway"
	"concord/internal/state"
)

func frame(name, data string) gateway.Frame {
	return gateway.Frame{Name: name, Data: json.RawMessage(data)}
}

func TestDispatchReady(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var got Ready
	On(d, func(e Ready) { got = e })

	d.Dispatch(frame("READY", `{
		"session_id": "sess-1",
		"user": {"id": "10", "username": "self"},
		"guilds": [
			{"id": "100", "name": "alpha", "unavailable": true},
			{"id": "200", "name": "beta", "channels": [{"id": "201", "name": "general"}]}
		]
	}`))

	if got.SessionID != "sess-1" {
		t.Fatalf("session ID = %q, want sess-1", got.SessionID)
	}
	if got.User.ID != 10 {
		t.Errorf("user ID = %d, want 10", got.User.ID)
	}
	if len(got.Guilds) != 2 {
		t.Fatalf("got %d guilds, want 2", len(got.Guilds))
	}
	if got.Guilds[0].Available {
		t.Error("guild 100 should be unavailable")
	}
	if !got.Guilds[1].Available {
		t.Error("guild 200 should be available")
	}

	ch, ok := cache.Channel(201)
	if !ok {
		t.Fatal("nested channel not cached")
	}
	if ch.GuildID != 200 {
		t.Errorf("nested channel guild = %d, want 200", ch.GuildID)
	}
	if _, ok := cache.User(10); !ok {
		t.Error("current user not cached")
	}
}

func TestDispatchChannelUpdateSnapshots(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var update ChannelUpdate
	On(d, func(e ChannelUpdate) { update = e })

	d.Dispatch(frame("CHANNEL_CREATE", `{"id": "5", "guild_id": "1", "name": "general", "topic": "old"}`))
	d.Dispatch(frame("CHANNEL_UPDATE", `{"id": "5", "guild_id": "1", "name": "general", "topic": "new"}`))

	if update.Channel.Topic != "new" {
		t.Errorf("after topic = %q, want new", update.Channel.Topic)
	}
	if update.Before == nil {
		t.Fatal("expected a Before snapshot for a cached channel")
	}
	if update.Before.Topic != "old" {
		t.Errorf("before topic = %q, want old", update.Before.Topic)
	}
}

func TestDispatchChannelUpdateUncachedHasNoBefore(t *testing.T) {
	d := NewDispatcher(state.NewCache(), nil)

	var update ChannelUpdate
	On(d, func(e ChannelUpdate) { update = e })

	d.Dispatch(frame("CHANNEL_UPDATE", `{"id": "5", "name": "general"}`))

	if update.Channel.ID != 5 {
		t.Fatalf("update not delivered")
	}
	if update.Before != nil {
		t.Error("Before should be nil for an uncached channel")
	}
}

func TestDispatchUnknownEvent(t *testing.T) {
	d := NewDispatcher(state.NewCache(), nil)

	var unknown []Unknown
	var created []MessageCreate
	On(d, func(e Unknown) { unknown = append(unknown, e) })
	On(d, func(e MessageCreate) { created = append(created, e) })

	d.Dispatch(frame("FOO_BAR", `{"answer": 42}`))
	d.Dispatch(frame("MESSAGE_CREATE", `{"id": "9", "channel_id": "5", "content": "still alive"}`))

	if len(unknown) != 1 {
		t.Fatalf("got %d unknown events, want 1", len(unknown))
	}
	if unknown[0].Name != "FOO_BAR" {
		t.Errorf("unknown name = %q", unknown[0].Name)
	}
	if string(unknown[0].Raw) != `{"answer": 42}` {
		t.Errorf("raw payload = %s", unknown[0].Raw)
	}
	if len(created) != 1 {
		t.Error("stream did not continue past the unrecognized event")
	}

	stats := d.Stats()
	if stats.UnknownEvents != 1 {
		t.Errorf("UnknownEvents = %d, want 1", stats.UnknownEvents)
	}
	if stats.Dispatched != 2 {
		t.Errorf("Dispatched = %d, want 2", stats.Dispatched)
	}
}

func TestDispatchDecodeFailureDegrades(t *testing.T) {
	d := NewDispatcher(state.NewCache(), nil)

	var unknown []Unknown
	On(d, func(e Unknown) { unknown = append(unknown, e) })

	d.Dispatch(frame("GUILD_CREATE", `{"id": ["not", "a", "snowflake"]}`))

	if len(unknown) != 1 {
		t.Fatalf("got %d unknown events, want 1", len(unknown))
	}
	if unknown[0].Name != "GUILD_CREATE" {
		t.Errorf("unknown name = %q", unknown[0].Name)
	}
	if d.Stats().DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", d.Stats().DecodeErrors)
	}
}

func TestDispatchGuildDeleteUnavailable(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var deleted GuildDelete
	On(d, func(e GuildDelete) { deleted = e })

	d.Dispatch(frame("GUILD_CREATE", `{"id": "100", "name": "alpha", "channels": [{"id": "101"}]}`))
	d.Dispatch(frame("GUILD_DELETE", `{"id": "100", "unavailable": true}`))

	if !deleted.Unavailable {
		t.Fatal("event should carry the unavailable flag")
	}
	if deleted.Guild == nil || deleted.Guild.Name != "alpha" {
		t.Error("event should carry the cached guild snapshot")
	}

	g, ok := cache.Guild(100)
	if !ok {
		t.Fatal("unavailable guild must stay cached")
	}
	if g.Available {
		t.Error("guild should be flagged unavailable")
	}
	if _, ok := cache.Channel(101); !ok {
		t.Error("entities under an unavailable guild must be retained")
	}
}

func TestDispatchGuildDeleteRemoval(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var deleted GuildDelete
	On(d, func(e GuildDelete) { deleted = e })

	d.Dispatch(frame("GUILD_CREATE", `{"id": "100", "name": "alpha", "channels": [{"id": "101"}]}`))
	d.Dispatch(frame("GUILD_DELETE", `{"id": "100"}`))

	if deleted.Unavailable {
		t.Fatal("removal must not carry the unavailable flag")
	}
	if deleted.Guild == nil || deleted.Guild.ID != 100 {
		t.Error("event should carry the removed guild")
	}
	if _, ok := cache.Guild(100); ok {
		t.Error("guild should be purged")
	}
	if _, ok := cache.Channel(101); ok {
		t.Error("guild channels should be purged with the guild")
	}
}

func TestDispatchMessageUpdateMergesPartialPayload(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var update MessageUpdate
	On(d, func(e MessageUpdate) { update = e })

	d.Dispatch(frame("MESSAGE_CREATE", `{
		"id": "9", "channel_id": "5", "guild_id": "1",
		"author": {"id": "7", "username": "alice"},
		"content": "first", "tts": true
	}`))
	d.Dispatch(frame("MESSAGE_UPDATE", `{"id": "9", "channel_id": "5", "content": "edited"}`))

	if update.Message.Content != "edited" {
		t.Errorf("content = %q, want edited", update.Message.Content)
	}
	if update.Message.Author.Username != "alice" {
		t.Error("fields absent from the edit payload must keep cached values")
	}
	if !update.Message.TTS {
		t.Error("tts flag lost in merge")
	}
	if update.Message.GuildID != 1 {
		t.Errorf("guild ID = %d, want 1", update.Message.GuildID)
	}
	if update.Before == nil || update.Before.Content != "first" {
		t.Error("Before should hold the pre-edit message")
	}
}

func TestDispatchMessageCreateResolvesGuild(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var created MessageCreate
	On(d, func(e MessageCreate) { created = e })

	d.Dispatch(frame("CHANNEL_CREATE", `{"id": "5", "guild_id": "1"}`))
	d.Dispatch(frame("MESSAGE_CREATE", `{"id": "9", "channel_id": "5", "content": "hi"}`))

	if created.Message.GuildID != 1 {
		t.Errorf("guild ID = %d, want 1 via channel lookup", created.Message.GuildID)
	}
}

func TestDispatchHandlerRegistrationOrder(t *testing.T) {
	d := NewDispatcher(state.NewCache(), nil)

	var order []int
	On(d, func(MessageCreate) { order = append(order, 1) })
	On(d, func(MessageCreate) { order = append(order, 2) })
	On(d, func(MessageCreate) { order = append(order, 3) })

	d.Dispatch(frame("MESSAGE_CREATE", `{"id": "9", "channel_id": "5"}`))

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("handlers ran out of order: %v", order)
	}
}

func TestDispatchPresenceUpdate(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var update PresenceUpdate
	On(d, func(e PresenceUpdate) { update = e })

	d.Dispatch(frame("PRESENCE_UPDATE", `{
		"user": {"id": "7"}, "guild_id": "1",
		"status": "online", "game": {"name": "chess"}
	}`))
	d.Dispatch(frame("PRESENCE_UPDATE", `{
		"user": {"id": "7"}, "guild_id": "1",
		"status": "idle", "game": {}
	}`))

	if update.Presence.Status != "idle" {
		t.Errorf("status = %q, want idle", update.Presence.Status)
	}
	if update.Before == nil || update.Before.Status != "online" {
		t.Error("Before should hold the prior presence")
	}
	if update.Before.Game != "chess" {
		t.Errorf("before game = %q, want chess", update.Before.Game)
	}

	p, ok := cache.Presence(1, 7)
	if !ok {
		t.Fatal("presence not cached")
	}
	if p.Status != "idle" {
		t.Errorf("cached status = %q, want idle", p.Status)
	}
}

func TestDispatchRoleDelete(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var deleted GuildRoleDelete
	On(d, func(e GuildRoleDelete) { deleted = e })

	d.Dispatch(frame("GUILD_ROLE_CREATE", `{"guild_id": "1", "role": {"id": "30", "name": "mods"}}`))
	d.Dispatch(frame("GUILD_ROLE_DELETE", `{"guild_id": "1", "role_id": "30"}`))

	if deleted.RoleID != 30 {
		t.Fatalf("role ID = %d, want 30", deleted.RoleID)
	}
	if deleted.Role == nil || deleted.Role.Name != "mods" {
		t.Error("event should carry the removed role")
	}
	if _, ok := cache.Role(30); ok {
		t.Error("role should be removed from the cache")
	}
}

func TestDispatchMemberRemove(t *testing.T) {
	cache := state.NewCache()
	d := NewDispatcher(cache, nil)

	var removed GuildMemberRemove
	On(d, func(e GuildMemberRemove) { removed = e })

	d.Dispatch(frame("GUILD_MEMBER_ADD", `{"guild_id": "1", "user": {"id": "7", "username": "alice"}, "nick": "al"}`))
	d.Dispatch(frame("GUILD_MEMBER_REMOVE", `{"guild_id": "1", "user": {"id": "7"}}`))

	if removed.User.ID != 7 {
		t.Fatalf("user ID = %d, want 7", removed.User.ID)
	}
	if removed.Member == nil || removed.Member.Nick != "al" {
		t.Error("event should carry the removed membership record")
	}
	if _, ok := cache.Member(1, 7); ok {
		t.Error("member should be removed from the cache")
	}
}

func TestDispatchLifecycleFrames(t *testing.T) {
	d := NewDispatcher(state.NewCache(), nil)

	var seen []string
	On(d, func(SocketOpened) { seen = append(seen, "opened") })
	On(d, func(SocketClosed) { seen = append(seen, "closed") })
	On(d, func(Disconnected) { seen = append(seen, "disconnected") })

	d.Dispatch(gateway.Frame{Name: gateway.FrameSocketOpened})
	d.Dispatch(gateway.Frame{Name: gateway.FrameSocketClosed})
	d.Dispatch(gateway.Frame{Name: gateway.FrameDisconnected})

	want := []string{"opened", "closed", "disconnected"}
	for i, w := range want {
		if i >= len(seen) || seen[i] != w {
			t.Fatalf("lifecycle events = %v, want %v", seen, want)
		}
	}
}
