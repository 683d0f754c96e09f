package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageSegment_Sources(t *testing.T) {
	tests := []struct {
		name string
		seg  ImageSegment
		want []string
	}{
		{name: "empty", seg: ImageSegment{}, want: []string{}},
		{name: "url only", seg: ImageSegment{URL: "http://a"}, want: []string{"http://a"}},
		{name: "data only", seg: ImageSegment{Data: "base64://AA=="}, want: []string{"base64://AA=="}},
		{name: "url before data", seg: ImageSegment{URL: "http://a", Data: "base64://AA=="}, want: []string{"http://a", "base64://AA=="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.seg.Sources())
		})
	}
}

func TestMessage_QuotedAndPlainText(t *testing.T) {
	q1 := &QuotedSegment{MessageID: "1"}
	q2 := &QuotedSegment{MessageID: "2"}
	msg := &Message{
		Segments: []Segment{
			&TextSegment{Text: "  生图 "},
			q1,
			&MentionSegment{UserID: "42"},
			&TextSegment{Text: "a cat "},
			q2,
		},
	}

	assert.Equal(t, []*QuotedSegment{q1, q2}, msg.Quoted())
	assert.Equal(t, "生图 a cat", msg.PlainText())

	msg.Text = " explicit "
	assert.Equal(t, "explicit", msg.PlainText())
}

func TestSegment_Kinds(t *testing.T) {
	kinds := map[SegmentKind]Segment{
		SegmentText:    &TextSegment{},
		SegmentImage:   &ImageSegment{},
		SegmentMention: &MentionSegment{},
		SegmentQuoted:  &QuotedSegment{},
	}
	for want, seg := range kinds {
		assert.Equal(t, want, seg.Kind())
	}
}
