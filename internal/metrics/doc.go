// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的插件指标采集能力，覆盖图片获取、
生成请求与指令分发三个维度。

# 概述

Collector 统一注册和记录 Prometheus 指标。指标注册到调用方传入的
Registerer（为 nil 时使用独立的 Registry），按 namespace 隔离。
nil *Collector 上的所有 Record 方法都是空操作，便于测试与可选装配。

# 主要能力

  - 图片获取：按来源（quoted/image/mention/sender/none）统计解析结果，
    按阶段（fetch/decode）统计候选失败。
  - 生成请求：单次尝试结果、最终结果与端到端耗时。
  - 指令分发：按指令与状态统计（accepted/rate_limited/panic）。
  - 缓存：头像缓存命中与未命中。
*/
package metrics
