// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的头像字节缓存。

# 概述

Manager 封装 go-redis 客户端，负责连接生命周期（初始化 Ping、后台健康
检查、优雅关闭），并以用户 ID 为键缓存已归一化的头像字节，避免同一用户
的头像在短时间内被重复下载。

# 核心类型

  - Manager：缓存管理器，提供 Get/Set/Delete 基础操作与
    GetAvatar/SetAvatar 头像存取。
  - Config：地址、密码、库编号、默认 TTL、健康检查间隔。

# 错误语义

未命中返回哨兵错误 ErrCacheMiss，可用 IsCacheMiss 判断。
*/
package cache
