// Package tlsutil 提供集中式 TLS 配置，
// 为图片下载与生成请求共用的 HTTP 客户端提供安全加固的 Transport。
package tlsutil
