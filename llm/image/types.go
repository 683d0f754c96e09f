package image

import "github.com/BaSui01/imagegen/types"

// GenerateRequest 是发往生成接口的请求体，每次调用重新构建
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Model          string `json:"model,omitempty"`
	Image          string `json:"image,omitempty"` // base64
}

type generationResponse struct {
	Created int64 `json:"created,omitempty"`
	Data    []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// Result 是单次成功响应的图片来源：URLResult 或 InlineResult。
type Result interface {
	isResult()
}

// URLResult 表示托管在远端、需要再次下载的图片
type URLResult struct {
	URL string
}

// InlineResult 表示响应中内联的图片字节
type InlineResult struct {
	Data []byte
}

func (URLResult) isResult()    {}
func (InlineResult) isResult() {}

// Outcome 是一次 Generate 调用的最终结果，Reason 为空表示成功
type Outcome struct {
	Data   []byte
	Reason string
	Code   types.ErrorCode
}

// OK 表示是否成功拿到图片
func (o Outcome) OK() bool {
	return o.Reason == "" && len(o.Data) > 0
}

func success(data []byte) Outcome {
	return Outcome{Data: data}
}

func failure(code types.ErrorCode, reason string) Outcome {
	return Outcome{Reason: reason, Code: code}
}
