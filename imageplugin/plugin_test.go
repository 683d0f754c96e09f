package imageplugin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/imagegen/llm/image"
	"github.com/BaSui01/imagegen/plugins"
	"github.com/BaSui01/imagegen/testutil"
	"github.com/BaSui01/imagegen/types"
)

// --- fakes ---

type fakeResolver struct {
	payload *types.ImagePayload
	calls   int
}

func (f *fakeResolver) Resolve(context.Context, *types.Message) (*types.ImagePayload, bool) {
	f.calls++
	return f.payload, f.payload != nil
}

type generateCall struct {
	img                           []byte
	prompt, negativePrompt, model string
}

type fakeGenerator struct {
	mu      sync.Mutex
	outcome image.Outcome
	panicV  any
	calls   []generateCall
}

func (f *fakeGenerator) Generate(_ context.Context, img []byte, prompt, negativePrompt, model string) image.Outcome {
	if f.panicV != nil {
		panic(f.panicV)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generateCall{img: img, prompt: prompt, negativePrompt: negativePrompt, model: model})
	return f.outcome
}

type reply struct {
	text  string
	image []byte
}

type fakeResponder struct {
	mu       sync.Mutex
	replies  []reply
	imageErr error
}

func (f *fakeResponder) SendText(_ context.Context, _ *types.Message, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{text: text})
	return nil
}

func (f *fakeResponder) SendImage(_ context.Context, _ *types.Message, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return f.imageErr
	}
	f.replies = append(f.replies, reply{image: data})
	return nil
}

func (f *fakeResponder) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.replies {
		if r.image == nil {
			out = append(out, r.text)
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		Basic: Command{Trigger: "生图", Model: "basic-model", NegativePrompt: "lowres"},
		Commands: []Command{
			{Trigger: "手办化", Prompt: "figure", Model: "figure-model"},
		},
	}
}

func textMessage(text string) *types.Message {
	return &types.Message{ID: "m1", Sender: "10001", Segments: []types.Segment{&types.TextSegment{Text: text}}}
}

// --- tests ---

func TestPlugin_HandleMessage_Success(t *testing.T) {
	res := &fakeResolver{payload: &types.ImagePayload{Data: []byte("REF"), Origin: types.OriginImage}}
	gen := &fakeGenerator{outcome: image.Outcome{Data: []byte("PNG")}}
	resp := &fakeResponder{}
	p := New(testConfig(), res, gen)

	handled, err := p.HandleMessage(testutil.TestContext(t), textMessage("生图 a cat"), resp)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, generateCall{img: []byte("REF"), prompt: "a cat", negativePrompt: "lowres", model: "basic-model"}, gen.calls[0])
	assert.Equal(t, []reply{{text: AckText}, {image: []byte("PNG")}}, resp.replies)
}

func TestPlugin_HandleMessage_NoReferenceImage(t *testing.T) {
	gen := &fakeGenerator{outcome: image.Outcome{Data: []byte("PNG")}}
	p := New(testConfig(), &fakeResolver{}, gen)

	_, err := p.HandleMessage(testutil.TestContext(t), textMessage("生图"), &fakeResponder{})
	require.NoError(t, err)
	require.Len(t, gen.calls, 1)
	assert.Nil(t, gen.calls[0].img)
	assert.Equal(t, " ", gen.calls[0].prompt)
}

func TestPlugin_HandleMessage_CustomCommand(t *testing.T) {
	gen := &fakeGenerator{outcome: image.Outcome{Data: []byte("PNG")}}
	p := New(testConfig(), &fakeResolver{}, gen)

	handled, err := p.HandleMessage(testutil.TestContext(t), textMessage("手办化 red"), &fakeResponder{})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, "figure red", gen.calls[0].prompt)
	assert.Equal(t, "figure-model", gen.calls[0].model)
	assert.Empty(t, gen.calls[0].negativePrompt)
}

func TestPlugin_HandleMessage_NotMatched(t *testing.T) {
	res := &fakeResolver{}
	gen := &fakeGenerator{}
	resp := &fakeResponder{}
	p := New(testConfig(), res, gen)

	for _, text := range []string{"hello", "", "生图猫"} {
		handled, err := p.HandleMessage(testutil.TestContext(t), textMessage(text), resp)
		require.NoError(t, err)
		assert.False(t, handled, text)
	}
	handled, err := p.HandleMessage(testutil.TestContext(t), nil, resp)
	require.NoError(t, err)
	assert.False(t, handled)

	assert.Equal(t, 0, res.calls)
	assert.Empty(t, gen.calls)
	assert.Empty(t, resp.replies)
}

func TestPlugin_HandleMessage_Failure(t *testing.T) {
	tests := []struct {
		name    string
		outcome image.Outcome
		want    string
	}{
		{
			name:    "exhausted",
			outcome: image.Outcome{Reason: "all 2 credentials failed: boom", Code: types.ErrExhaustedRetries},
			want:    "生成失败，all 2 credentials failed: boom",
		},
		{
			name:    "no credentials",
			outcome: image.Outcome{Reason: "no credentials configured", Code: types.ErrNoCredentials},
			want:    "生成失败，no credentials configured",
		},
		{
			name:    "empty outcome",
			outcome: image.Outcome{},
			want:    "生成失败，未返回图片。",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &fakeResponder{}
			p := New(testConfig(), &fakeResolver{}, &fakeGenerator{outcome: tt.outcome})

			handled, err := p.HandleMessage(testutil.TestContext(t), textMessage("生图 x"), resp)
			require.NoError(t, err)
			assert.True(t, handled)
			assert.Equal(t, []string{AckText, tt.want}, resp.texts())
		})
	}
}

func TestPlugin_HandleMessage_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	resp := &fakeResponder{}
	p := New(testConfig(), &fakeResolver{}, &fakeGenerator{panicV: "kaboom"}, WithLogger(zap.New(core)))

	handled, err := p.HandleMessage(testutil.TestContext(t), textMessage("生图"), resp)
	assert.True(t, handled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, []string{AckText, "生成出错: kaboom"}, resp.texts())

	entries := logs.FilterMessage("generation panicked").All()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ContextMap()["task_id"])
}

func TestPlugin_HandleMessage_SendImageError(t *testing.T) {
	resp := &fakeResponder{imageErr: errors.New("socket closed")}
	p := New(testConfig(), &fakeResolver{}, &fakeGenerator{outcome: image.Outcome{Data: []byte("PNG")}})

	handled, err := p.HandleMessage(testutil.TestContext(t), textMessage("生图"), resp)
	assert.True(t, handled)
	assert.ErrorContains(t, err, "send image: socket closed")
}

func TestPlugin_HandleMessage_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	gen := &fakeGenerator{outcome: image.Outcome{Data: []byte("PNG")}}
	resp := &fakeResponder{}
	p := New(cfg, &fakeResolver{}, gen)
	ctx := testutil.TestContext(t)

	_, err := p.HandleMessage(ctx, textMessage("生图"), resp)
	require.NoError(t, err)
	handled, err := p.HandleMessage(ctx, textMessage("生图"), resp)
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Len(t, gen.calls, 1)
	assert.Equal(t, []string{AckText, RateLimitedText}, resp.texts())

	other := textMessage("生图")
	other.Sender = "20002"
	_, err = p.HandleMessage(ctx, other, resp)
	require.NoError(t, err)
	assert.Len(t, gen.calls, 2)
}

func TestPlugin_Init(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		nilDeps bool
		wantErr string
	}{
		{name: "valid", cfg: testConfig()},
		{name: "custom only", cfg: Config{Commands: []Command{{Trigger: "x"}}}},
		{name: "missing deps", cfg: testConfig(), nilDeps: true, wantErr: "required"},
		{name: "no triggers", cfg: Config{}, wantErr: "no trigger"},
		{name: "blank custom trigger skipped", cfg: Config{Basic: Command{Trigger: "生图"}, Commands: []Command{{Trigger: " "}}}},
		{name: "only blank custom triggers", cfg: Config{Commands: []Command{{Trigger: ""}, {Trigger: "  "}}}, wantErr: "no trigger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *Plugin
			if tt.nilDeps {
				p = New(tt.cfg, nil, nil)
			} else {
				p = New(tt.cfg, &fakeResolver{}, &fakeGenerator{})
			}
			err := p.Init(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPlugin_Init_SkipsBlankCustomTriggers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := Config{
		Basic: Command{Trigger: "生图"},
		Commands: []Command{
			{Trigger: " ", Prompt: "catch-all"},
			{Trigger: "手办化", Prompt: "figure"},
		},
	}
	gen := &fakeGenerator{outcome: image.Outcome{Data: []byte("IMG")}}
	p := New(cfg, &fakeResolver{}, gen, WithLogger(zap.New(core)))
	require.NoError(t, p.Init(context.Background()))

	warned := logs.FilterMessage("skipping custom command with empty trigger").All()
	require.Len(t, warned, 1)
	assert.EqualValues(t, 0, warned[0].ContextMap()["index"])

	// 以空格开头的文本不会命中被跳过的指令
	handled, err := p.HandleMessage(testutil.TestContext(t), textMessage(" hello"), &fakeResponder{})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = p.HandleMessage(testutil.TestContext(t), textMessage("手办化 red"), &fakeResponder{})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, "figure red", gen.calls[0].prompt)
}

func TestPlugin_ShutdownRunsClosersInReverse(t *testing.T) {
	var order []string
	p := New(testConfig(), &fakeResolver{}, &fakeGenerator{},
		WithCloser(func(context.Context) error { order = append(order, "fetcher"); return nil }),
		WithCloser(func(context.Context) error { order = append(order, "pool"); return errors.New("pool busy") }),
		WithCloser(func(context.Context) error { order = append(order, "cache"); return nil }),
	)

	err := p.Shutdown(context.Background())
	assert.ErrorContains(t, err, "pool busy")
	assert.Equal(t, []string{"cache", "pool", "fetcher"}, order)

	// 第二次调用不再重复释放
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestPlugin_Metadata(t *testing.T) {
	p := New(testConfig(), &fakeResolver{}, &fakeGenerator{})
	meta := plugins.ExtractMetadata(p)
	assert.Equal(t, PluginName, meta.Name)
	assert.Equal(t, []string{"生图", "手办化"}, meta.Commands)
}
