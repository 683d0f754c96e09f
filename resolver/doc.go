// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package resolver 从一条聊天消息中找出"第一张相关图片"并归一化为静态帧。

# 查找顺序

Resolver.Resolve 按固定优先级短路查找：

 1. 消息中任意引用段（QuotedSegment）内的第一张可用图片
 2. 顶层段从左到右的第一张可用图片；没有则取第一个 @ 用户的头像
 3. 发送者头像
 4. 都失败则返回 false

单个候选的失败（网络错误、非 2xx、解码失败、空数据）只记录日志并继续下一个，
不会向调用方返回错误。

# 图片来源

  - http:// 与 https:// 通过共享 Fetcher 下载
  - base64:// 内联标记与 data: URI 在 WorkerPool 上解码
  - 头像地址由 AvatarURL 按模板生成，非数字 ID 使用随机 9 位 ID 代替

# 帧归一化

Normalizer 在 WorkerPool 上运行：非 GIF 与单帧 GIF 原样返回，
多帧 GIF 取第一帧绘制到 NRGBA 画布后重新编码为 PNG。
任何编解码错误都返回原始字节。
*/
package resolver
