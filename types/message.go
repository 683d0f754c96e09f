package types

import "strings"

// SegmentKind identifies a Segment variant.
type SegmentKind string

const (
	SegmentText    SegmentKind = "text"
	SegmentImage   SegmentKind = "image"
	SegmentMention SegmentKind = "mention"
	SegmentQuoted  SegmentKind = "quoted"
)

// Segment is one element of a message chain. The variant set is closed:
// *TextSegment, *ImageSegment, *MentionSegment and *QuotedSegment.
type Segment interface {
	Kind() SegmentKind
	isSegment()
}

// TextSegment carries plain text.
type TextSegment struct {
	Text string `json:"text"`
}

// ImageSegment references an image either by URL or by inline data
// (a "base64://" marker or a data URI).
type ImageSegment struct {
	URL  string `json:"url,omitempty"`
	Data string `json:"data,omitempty"`
}

// MentionSegment mentions a user of the host platform.
type MentionSegment struct {
	UserID string `json:"user_id"`
}

// QuotedSegment embeds the chain of a replied-to message.
type QuotedSegment struct {
	MessageID string    `json:"message_id,omitempty"`
	Chain     []Segment `json:"-"`
}

func (*TextSegment) Kind() SegmentKind    { return SegmentText }
func (*ImageSegment) Kind() SegmentKind   { return SegmentImage }
func (*MentionSegment) Kind() SegmentKind { return SegmentMention }
func (*QuotedSegment) Kind() SegmentKind  { return SegmentQuoted }

func (*TextSegment) isSegment()    {}
func (*ImageSegment) isSegment()   {}
func (*MentionSegment) isSegment() {}
func (*QuotedSegment) isSegment()  {}

// Sources returns the usable image sources in lookup order: URL first,
// then inline data.
func (s *ImageSegment) Sources() []string {
	out := make([]string, 0, 2)
	if s.URL != "" {
		out = append(out, s.URL)
	}
	if s.Data != "" {
		out = append(out, s.Data)
	}
	return out
}

// Message is an inbound chat message. Segments are owned by the host and
// must be treated as read-only.
type Message struct {
	ID       string    `json:"id,omitempty"`
	Sender   string    `json:"sender"`
	GroupID  string    `json:"group_id,omitempty"`
	Text     string    `json:"text,omitempty"`
	Segments []Segment `json:"-"`
}

// Quoted returns every QuotedSegment in the message, in order.
func (m *Message) Quoted() []*QuotedSegment {
	var out []*QuotedSegment
	for _, seg := range m.Segments {
		if q, ok := seg.(*QuotedSegment); ok {
			out = append(out, q)
		}
	}
	return out
}

// PlainText returns Text if set, otherwise the concatenation of all text
// segments, trimmed.
func (m *Message) PlainText() string {
	if m.Text != "" {
		return strings.TrimSpace(m.Text)
	}
	var b strings.Builder
	for _, seg := range m.Segments {
		if t, ok := seg.(*TextSegment); ok {
			b.WriteString(t.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// ImageOrigin records where a resolved image came from.
type ImageOrigin string

const (
	OriginQuoted  ImageOrigin = "quoted"
	OriginImage   ImageOrigin = "image"
	OriginMention ImageOrigin = "mention"
	OriginSender  ImageOrigin = "sender"
)

// ImagePayload is a resolved image. Data is always a single static frame.
type ImagePayload struct {
	Data   []byte      `json:"-"`
	Origin ImageOrigin `json:"origin"`
}
