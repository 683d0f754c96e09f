// =============================================================================
// 📦 测试数据工厂 - 图片样例
// =============================================================================
// 运行时生成的小尺寸图片，覆盖静态图、单帧/多帧 GIF 与损坏数据
// =============================================================================
package fixtures

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
)

// PNG 返回 w*h 的纯色 PNG
func PNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// StaticGIF 返回单帧 GIF
func StaticGIF(w, h int) []byte {
	return AnimatedGIF(w, h, 1)
}

// AnimatedGIF 返回 frames 帧的 GIF，每帧颜色不同，第一帧为红色
func AnimatedGIF(w, h, frames int) []byte {
	anim := &gif.GIF{}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
		c := FrameColor(i)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				frame.Set(x, y, c)
			}
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// FrameColor 返回 AnimatedGIF 第 i 帧使用的颜色
func FrameColor(i int) color.Color {
	switch i % 3 {
	case 0:
		return color.RGBA{R: 255, A: 255}
	case 1:
		return color.RGBA{G: 255, A: 255}
	default:
		return color.RGBA{B: 255, A: 255}
	}
}

// CorruptGIF 返回带 GIF 头但内容损坏的数据
func CorruptGIF() []byte {
	return append([]byte("GIF89a"), 0xff, 0x00, 0x13, 0x37)
}

// InlineMarker 返回 base64:// 内联图片引用
func InlineMarker(data []byte) string {
	return "base64://" + base64.StdEncoding.EncodeToString(data)
}

// DataURI 返回 data: URI
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
