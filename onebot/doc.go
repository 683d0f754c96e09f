// Package onebot is the host adapter for OneBot v11 implementations
// (NapCat, LLOneBot, go-cqhttp) over a forward WebSocket.
//
// Client connects to the implementation, turns "message" events into
// types.Message values and hands each one to a Handler on its own
// goroutine. reply segments are expanded through the get_msg action into
// QuotedSegment chains. Client also implements plugins.Responder through
// send_msg, sending images inline as base64:// segments.
package onebot
