package model

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestSnowflake(t *testing.T) {
	t.Run("parse and string round trip", func(t *testing.T) {
		id, err := ParseSnowflake("190320984123768832")
		if err != nil {
			t.Fatalf("ParseSnowflake failed: %v", err)
		}
		if id.String() != "190320984123768832" {
			t.Errorf("String() = %q, want %q", id.String(), "190320984123768832")
		}
	})

	t.Run("parse rejects non-numeric", func(t *testing.T) {
		if _, err := ParseSnowflake("not-an-id"); err == nil {
			t.Error("expected error for non-numeric ID")
		}
	})

	t.Run("unmarshal accepts quoted and bare forms", func(t *testing.T) {
		var quoted, bare Snowflake
		if err := json.Unmarshal([]byte(`"42"`), &quoted); err != nil {
			t.Fatalf("unmarshal quoted: %v", err)
		}
		if err := json.Unmarshal([]byte(`42`), &bare); err != nil {
			t.Fatalf("unmarshal bare: %v", err)
		}
		if quoted != 42 || bare != 42 {
			t.Errorf("got quoted=%d bare=%d, want 42", quoted, bare)
		}
	})

	t.Run("marshal quotes the ID", func(t *testing.T) {
		data, err := json.Marshal(Snowflake(7))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(data) != `"7"` {
			t.Errorf("marshal = %s, want %q", data, `"7"`)
		}
	})
}

func TestEmbedTimestamp(t *testing.T) {
	t.Run("zero timestamp omitted", func(t *testing.T) {
		data, err := json.Marshal(Embed{Title: "status"})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if bytes.Contains(data, []byte("timestamp")) {
			t.Errorf("zero timestamp must be omitted, got %s", data)
		}
	})

	t.Run("set timestamp encoded as RFC3339 UTC", func(t *testing.T) {
		ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("EST", -5*3600))
		data, err := json.Marshal(Embed{Timestamp: ts})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if decoded["timestamp"] != "2026-03-14T14:26:53Z" {
			t.Errorf("timestamp = %v, want 2026-03-14T14:26:53Z", decoded["timestamp"])
		}
	})

	t.Run("round trip preserves instant", func(t *testing.T) {
		ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		data, _ := json.Marshal(Embed{Timestamp: ts})
		var e Embed
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !e.Timestamp.Equal(ts) {
			t.Errorf("Timestamp = %v, want %v", e.Timestamp, ts)
		}
	})
}

func TestClone(t *testing.T) {
	t.Run("member roles are independent", func(t *testing.T) {
		m := Member{User: User{ID: 1}, Roles: []Snowflake{10, 20}}
		c := m.Clone()
		c.Roles[0] = 99
		if m.Roles[0] != 10 {
			t.Error("Clone shares the roles slice with the original")
		}
	})

	t.Run("message embeds are independent", func(t *testing.T) {
		m := Message{ID: 1, Embeds: []Embed{{Title: "a", Fields: []EmbedField{{Name: "n"}}}}}
		c := m.Clone()
		c.Embeds[0].Fields[0].Name = "mutated"
		if m.Embeds[0].Fields[0].Name != "n" {
			t.Error("Clone shares embed fields with the original")
		}
	})

	t.Run("channel recipients are independent", func(t *testing.T) {
		ch := Channel{ID: 1, Type: ChannelTypeDM, Recipients: []User{{ID: 5}}}
		c := ch.Clone()
		c.Recipients[0].Username = "mutated"
		if ch.Recipients[0].Username != "" {
			t.Error("Clone shares the recipients slice with the original")
		}
	})
}
