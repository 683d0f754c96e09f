package imageplugin

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Command 是一条生图指令的配置
type Command struct {
	Trigger        string `json:"trigger" yaml:"trigger"`
	Prompt         string `json:"prompt,omitempty" yaml:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty" yaml:"negative_prompt"`
	Model          string `json:"model,omitempty" yaml:"model"`
}

// invocation 是一次匹配成功的指令调用
type invocation struct {
	command        string
	prompt         string
	negativePrompt string
	model          string
}

// emptyPrompt 是空提示词时发送的占位值
const emptyPrompt = " "

// matchCustom 按顺序匹配自定义指令，首个命中生效
func matchCustom(commands []Command, text string) (invocation, bool) {
	for _, cmd := range commands {
		if cmd.Trigger == "" || !strings.HasPrefix(text, cmd.Trigger) {
			continue
		}
		tail := strings.TrimSpace(text[len(cmd.Trigger):])
		return invocation{
			command:        cmd.Trigger,
			prompt:         joinPrompt(cmd.Prompt, tail),
			negativePrompt: cmd.NegativePrompt,
			model:          cmd.Model,
		}, true
	}
	return invocation{}, false
}

// matchBasic 匹配基础指令：完全相同，或触发词后紧跟空白
func matchBasic(basic Command, text string) (invocation, bool) {
	if basic.Trigger == "" || !strings.HasPrefix(text, basic.Trigger) {
		return invocation{}, false
	}
	rest := text[len(basic.Trigger):]
	if rest != "" {
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsSpace(r) {
			return invocation{}, false
		}
	}
	prompt := strings.TrimSpace(rest)
	if prompt == "" {
		prompt = emptyPrompt
	}
	return invocation{
		command:        basic.Trigger,
		prompt:         prompt,
		negativePrompt: basic.NegativePrompt,
		model:          basic.Model,
	}, true
}

func joinPrompt(fixed, tail string) string {
	fixed = strings.TrimSpace(fixed)
	switch {
	case fixed == "" && tail == "":
		return emptyPrompt
	case fixed == "":
		return tail
	case tail == "":
		return fixed
	default:
		return fixed + " " + tail
	}
}
