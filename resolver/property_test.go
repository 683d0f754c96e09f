package resolver

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/BaSui01/imagegen/testutil"
	"github.com/BaSui01/imagegen/testutil/fixtures"
	"github.com/BaSui01/imagegen/types"
)

// 随机组合的消息中，优先级顺序始终成立
func TestProperty_ResolutionPriority(t *testing.T) {
	quoted := fixtures.PNG(1, 1)
	top := fixtures.PNG(1, 2)
	mention := fixtures.PNG(2, 1)
	sender := fixtures.PNG(2, 2)
	responses := map[string][]byte{
		"https://img.test/quoted.png": quoted,
		"https://img.test/top.png":    top,
		avatar("222"):                 mention,
		avatar("111"):                 sender,
	}

	rapid.Check(t, func(rt *rapid.T) {
		hasQuoted := rapid.Bool().Draw(rt, "quoted")
		hasTop := rapid.Bool().Draw(rt, "top")
		hasMention := rapid.Bool().Draw(rt, "mention")
		noise := rapid.IntRange(0, 3).Draw(rt, "noise")

		var segs []types.Segment
		for i := 0; i < noise; i++ {
			segs = append(segs, &types.TextSegment{Text: fmt.Sprintf("t%d", i)})
		}
		if hasMention {
			segs = append(segs, &types.MentionSegment{UserID: "222"})
		}
		if hasTop {
			segs = append(segs, &types.ImageSegment{URL: "https://img.test/top.png"})
		}
		if hasQuoted {
			segs = append(segs, &types.QuotedSegment{Chain: []types.Segment{
				&types.ImageSegment{URL: "https://img.test/quoted.png"},
			}})
		}
		perm := rapid.Permutation(segs).Draw(rt, "order")

		r := newTestResolver(t, newFakeDownloader(responses))
		payload, ok := r.Resolve(testutil.TestContext(t), &types.Message{Sender: "111", Segments: perm})
		if !ok {
			rt.Fatalf("sender avatar must always resolve")
		}

		want := types.OriginSender
		switch {
		case hasQuoted:
			want = types.OriginQuoted
		case hasTop:
			want = types.OriginImage
		case hasMention:
			want = types.OriginMention
		}
		if payload.Origin != want {
			rt.Fatalf("origin = %s, want %s", payload.Origin, want)
		}
	})
}
