// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 imagegen 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - HTTP 辅助: CountingServer 记录请求次数，ServeBytes 返回固定响应

# 子包

  - testutil/fixtures: 图片样例工厂，提供 PNG、单帧/多帧 GIF、
    损坏 GIF 以及 base64:// 与 data: 形式的内联引用

# 使用示例

	ctx := testutil.TestContext(t)
	srv := testutil.NewCountingServer(t, testutil.ServeBytes("image/png", fixtures.PNG(4, 4)))
	data, err := fetcher.Get(ctx, srv.URL, time.Second)
*/
package testutil
