package image

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/BaSui01/imagegen/types"
)

func errNoImageData() error {
	return types.NewError(types.ErrNoImageData, "no image data in response").WithRetryable(true)
}

// parseResult 从响应中取第一条图片数据
func parseResult(resp *generationResponse) (Result, error) {
	if len(resp.Data) == 0 {
		return nil, errNoImageData()
	}
	first := resp.Data[0]
	switch {
	case first.URL != "":
		return URLResult{URL: first.URL}, nil
	case first.B64JSON != "":
		data, err := DecodeBase64(first.B64JSON)
		if err != nil {
			return nil, types.WrapError(err, types.ErrRequestFailed, "invalid b64_json").WithRetryable(true)
		}
		if len(data) == 0 {
			return nil, errNoImageData()
		}
		return InlineResult{Data: data}, nil
	default:
		return nil, errNoImageData()
	}
}

// DecodeBase64 解码可能缺少 '=' 填充的 base64 字符串
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if alt, altErr := base64.URLEncoding.DecodeString(s); altErr == nil {
		return alt, nil
	}
	return nil, fmt.Errorf("base64 decode: %w", err)
}
