package onebot

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/BaSui01/imagegen/types"
)

// ID accepts both JSON numbers and strings; OneBot implementations differ.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Segment is one element of a OneBot array-format message.
type Segment struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textData struct {
	Text string `json:"text"`
}

type imageData struct {
	File string `json:"file"`
	URL  string `json:"url,omitempty"`
}

type atData struct {
	QQ ID `json:"qq"`
}

type replyData struct {
	ID ID `json:"id"`
}

// Sender is the sender block of a message event.
type Sender struct {
	UserID   ID     `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
}

// Event is an inbound frame that carries post_type.
type Event struct {
	PostType    string    `json:"post_type"`
	MessageType string    `json:"message_type,omitempty"`
	SubType     string    `json:"sub_type,omitempty"`
	MessageID   ID        `json:"message_id,omitempty"`
	UserID      ID        `json:"user_id,omitempty"`
	GroupID     ID        `json:"group_id,omitempty"`
	SelfID      ID        `json:"self_id,omitempty"`
	RawMessage  string    `json:"raw_message,omitempty"`
	Message     []Segment `json:"message,omitempty"`
	Sender      Sender    `json:"sender"`
}

// IsMessage reports whether the event is a chat message.
func (e *Event) IsMessage() bool {
	return e.PostType == "message"
}

// frame is any inbound JSON object: an event or an action response.
type frame struct {
	Event
	Status  string          `json:"status,omitempty"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data,omitempty"`
	Echo    string          `json:"echo,omitempty"`
	Wording string          `json:"wording,omitempty"`
}

func (f *frame) isResponse() bool {
	return f.Echo != "" && f.PostType == ""
}

// parsed is the result of converting OneBot segments; reply ids are
// returned separately so the caller can fetch the quoted message.
type parsed struct {
	segments []types.Segment
	replyIDs []string
	text     string
}

// parseSegments converts array-format segments. Unknown types are dropped.
func parseSegments(raw []Segment) parsed {
	var (
		out  parsed
		text strings.Builder
	)
	for _, seg := range raw {
		switch seg.Type {
		case "text":
			var d textData
			if json.Unmarshal(seg.Data, &d) == nil {
				out.segments = append(out.segments, &types.TextSegment{Text: d.Text})
				text.WriteString(d.Text)
			}
		case "image":
			var d imageData
			if json.Unmarshal(seg.Data, &d) == nil {
				if img := toImageSegment(d); img != nil {
					out.segments = append(out.segments, img)
				}
			}
		case "at":
			var d atData
			if json.Unmarshal(seg.Data, &d) == nil && d.QQ != "" && d.QQ != "all" {
				out.segments = append(out.segments, &types.MentionSegment{UserID: string(d.QQ)})
			}
		case "reply":
			var d replyData
			if json.Unmarshal(seg.Data, &d) == nil && d.ID != "" {
				out.replyIDs = append(out.replyIDs, string(d.ID))
			}
		}
	}
	out.text = strings.TrimSpace(text.String())
	return out
}

// toImageSegment maps url/file to URL/Data. A file that is itself a URL or
// an inline payload is used as a source; a bare file name is not.
func toImageSegment(d imageData) *types.ImageSegment {
	img := &types.ImageSegment{URL: d.URL}
	switch {
	case strings.HasPrefix(d.File, "base64://"):
		img.Data = d.File
	case strings.HasPrefix(d.File, "http://"), strings.HasPrefix(d.File, "https://"):
		if img.URL == "" {
			img.URL = d.File
		} else {
			img.Data = d.File
		}
	}
	if img.URL == "" && img.Data == "" {
		return nil
	}
	return img
}

// ToMessage converts a message event. Quoted chains are attached by the
// client after get_msg.
func (e *Event) ToMessage() (*types.Message, []string) {
	p := parseSegments(e.Message)
	sender := string(e.UserID)
	if sender == "" {
		sender = string(e.Sender.UserID)
	}
	msg := &types.Message{
		ID:       string(e.MessageID),
		Sender:   sender,
		Text:     p.text,
		Segments: p.segments,
	}
	if e.MessageType == "group" {
		msg.GroupID = string(e.GroupID)
	}
	return msg, p.replyIDs
}
