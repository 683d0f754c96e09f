package imageplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchBasic(t *testing.T) {
	basic := Command{Trigger: "生图", Model: "m", NegativePrompt: "ugly"}
	tests := []struct {
		text       string
		wantOK     bool
		wantPrompt string
	}{
		{text: "生图", wantOK: true, wantPrompt: " "},
		{text: "生图   ", wantOK: true, wantPrompt: " "},
		{text: "生图 a cat", wantOK: true, wantPrompt: "a cat"},
		{text: "生图\n一只猫", wantOK: true, wantPrompt: "一只猫"},
		{text: "生图猫", wantOK: false},
		{text: "帮我生图", wantOK: false},
		{text: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			inv, ok := matchBasic(basic, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantPrompt, inv.prompt)
			assert.Equal(t, "m", inv.model)
			assert.Equal(t, "ugly", inv.negativePrompt)
			assert.Equal(t, "生图", inv.command)
		})
	}

	_, ok := matchBasic(Command{}, "生图")
	assert.False(t, ok)
}

func TestMatchCustom(t *testing.T) {
	commands := []Command{
		{Trigger: ""},
		{Trigger: "手办化", Prompt: "turn into a figure", Model: "figure-v1"},
		{Trigger: "手办", Prompt: "figure lite"},
		{Trigger: "画", NegativePrompt: "blurry"},
	}
	tests := []struct {
		name        string
		text        string
		wantOK      bool
		wantCommand string
		wantPrompt  string
	}{
		{name: "exact", text: "手办化", wantOK: true, wantCommand: "手办化", wantPrompt: "turn into a figure"},
		{name: "with tail", text: "手办化 blue", wantOK: true, wantCommand: "手办化", wantPrompt: "turn into a figure blue"},
		{name: "first match wins", text: "手办化!", wantOK: true, wantCommand: "手办化", wantPrompt: "turn into a figure !"},
		{name: "prefix without space", text: "手办ABC", wantOK: true, wantCommand: "手办", wantPrompt: "figure lite ABC"},
		{name: "no fixed prompt", text: "画 一只猫", wantOK: true, wantCommand: "画", wantPrompt: "一只猫"},
		{name: "no prompt at all", text: "画", wantOK: true, wantCommand: "画", wantPrompt: " "},
		{name: "no match", text: "hello", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := matchCustom(commands, tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantCommand, inv.command)
			assert.Equal(t, tt.wantPrompt, inv.prompt)
		})
	}
}
