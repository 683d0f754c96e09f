// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package main 提供 imagegen 可执行入口。

# 概述

cmd/imagegen 通过 OneBot v11 正向 WebSocket 接入聊天平台，把消息交给
插件管理器分发；生图插件解析参考图、调用生成 API 并回复结果。

# 主要能力

  - 子命令：serve（启动服务）、version、help
  - 配置：默认值 → YAML 文件 → IMAGEGEN_ 前缀环境变量
  - 日志：zap，级别、格式与输出路径来自 log 配置段
  - 运维端口：/metrics（Prometheus）与 /healthz
  - 遥测：可选 OTLP 导出生成调用的 span
  - 优雅关闭：SIGINT/SIGTERM → 断开 OneBot → 关闭插件资源 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
