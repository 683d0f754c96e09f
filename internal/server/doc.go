// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package server 管理 imagegen 的运维 HTTP 服务生命周期。

# 概述

Manager 封装 net/http.Server，提供非阻塞 Start、阻塞式 Run 与
幂等的 Shutdown。Run 适合放进 errgroup：ctx 结束时自动优雅关闭。

NewOpsHandler 挂载 /metrics（Prometheus）与 /healthz 两个路由。
*/
package server
