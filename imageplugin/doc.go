// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package imageplugin 是生图指令的分发层，实现 plugins.Plugin 与 plugins.MessageHandler。

# 指令

  - 基础指令：消息等于触发词（默认 "生图"）或以 "触发词 + 空白" 开头，
    其后的文本为提示词，空提示词按单个空格发送
  - 自定义指令：来自配置，消息以触发词开头即匹配，按配置顺序首个命中生效，
    优先于基础指令；固定提示词之后追加用户输入

# 流程

匹配 → 按发送者限流 → Resolver 获取参考图 → 回复 "正在生成中，请稍候..."
→ Generator 生成 → 回复图片或 "生成失败，原因"。生成过程中的 panic
被恢复并回复 "生成出错: ..."。

Shutdown 按注册的逆序释放共享资源（HTTP 连接、编解码协程池、缓存）。
*/
package imageplugin
