package model

import (
	"encoding/json"
	"time"
)

// Embed is rich content attached to a message.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Type        string       `json:"type,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`

	// Timestamp is omitted from the wire form entirely when zero; the
	// service rejects epoch-zero timestamps as malformed.
	Timestamp time.Time `json:"-"`
}

// EmbedFooter is the embed footer line.
type EmbedFooter struct {
	Text    string `json:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedMedia is an image or thumbnail reference.
type EmbedMedia struct {
	URL    string `json:"url,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// EmbedAuthor is the embed author line.
type EmbedAuthor struct {
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedField is a titled key/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
	Inline bool   `json:"inline,omitempty"`
}

// Clone returns a deep copy.
func (e Embed) Clone() Embed {
	out := e
	if e.Footer != nil {
		f := *e.Footer
		out.Footer = &f
	}
	if e.Image != nil {
		m := *e.Image
		out.Image = &m
	}
	if e.Thumbnail != nil {
		m := *e.Thumbnail
		out.Thumbnail = &m
	}
	if e.Author != nil {
		a := *e.Author
		out.Author = &a
	}
	if e.Fields != nil {
		out.Fields = make([]EmbedField, len(e.Fields))
		copy(out.Fields, e.Fields)
	}
	return out
}

// embedJSON mirrors Embed with an explicit timestamp field for wire encoding.
type embedJSON struct {
	Title       string       `json:"title,omitempty"`
	Type        string       `json:"type,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// MarshalJSON encodes the embed, emitting the timestamp key only when the
// timestamp is set, as an ISO-8601 UTC string.
func (e Embed) MarshalJSON() ([]byte, error) {
	out := embedJSON{
		Title:       e.Title,
		Type:        e.Type,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
		Footer:      e.Footer,
		Image:       e.Image,
		Thumbnail:   e.Thumbnail,
		Author:      e.Author,
		Fields:      e.Fields,
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the embed, mapping a missing or empty timestamp to
// the zero time.
func (e *Embed) UnmarshalJSON(data []byte) error {
	var in embedJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Embed{
		Title:       in.Title,
		Type:        in.Type,
		Description: in.Description,
		URL:         in.URL,
		Color:       in.Color,
		Footer:      in.Footer,
		Image:       in.Image,
		Thumbnail:   in.Thumbnail,
		Author:      in.Author,
		Fields:      in.Fields,
	}
	if in.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			return err
		}
		e.Timestamp = ts
	}
	return nil
}
