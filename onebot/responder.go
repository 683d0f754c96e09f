package onebot

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/BaSui01/imagegen/types"
)

type outSegment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// SendText replies with plain text to the message's chat.
func (c *Client) SendText(ctx context.Context, msg *types.Message, text string) error {
	return c.send(ctx, msg, outSegment{Type: "text", Data: map[string]any{"text": text}})
}

// SendImage replies with an inline image.
func (c *Client) SendImage(ctx context.Context, msg *types.Message, data []byte) error {
	return c.send(ctx, msg, outSegment{Type: "image", Data: map[string]any{
		"file": "base64://" + base64.StdEncoding.EncodeToString(data),
	}})
}

func (c *Client) send(ctx context.Context, msg *types.Message, segments ...outSegment) error {
	if msg == nil {
		return fmt.Errorf("onebot send_msg: nil message")
	}
	params := map[string]any{"message": segments}
	if msg.GroupID != "" {
		params["message_type"] = "group"
		params["group_id"] = ID(msg.GroupID)
	} else {
		params["message_type"] = "private"
		params["user_id"] = ID(msg.Sender)
	}
	_, err := c.Call(ctx, "send_msg", params)
	return err
}
