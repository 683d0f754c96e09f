// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供插件各层共享的基础类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 resolver、llm/image、
imageplugin、onebot 等模块提供统一的类型契约，避免循环依赖。

# 核心类型

  - Message：入站聊天消息（Sender、Text、有序 Segments）
  - Segment：消息片段的封闭变体集合：ImageSegment、MentionSegment、
    QuotedSegment、TextSegment
  - ImagePayload：已归一化（单帧静态）的图片字节与来源标记
  - Error / ErrorCode：结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - 错误工具链：WrapError / AsError / IsErrorCode / IsRetryable
  - 片段遍历：Message.Quoted / Message.PlainText
*/
package types
