// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 image 提供面向 OpenAI 兼容 /v1/images/generations 接口的图像生成客户端，
带多 API Key 故障转移。

# 概述

Client 根据提示词、可选反向提示词、可选模型与可选参考图构造请求，
依次使用 CredentialPool 中的 Key 发送；任一失败（网络错误、非 2xx、
响应体异常、响应中无图片）都会把游标推进到下一个 Key 并重试，直到成功
或所有 Key 均已尝试。

# 核心类型

  - Client：生成客户端，持有 Key 池、共享下载器、日志、指标与 Tracer。
  - CredentialPool：有序 API Key 列表与当前游标。
  - GenerateRequest：请求体 {prompt, negative_prompt?, model?, image?}。
  - Result：响应变体，URLResult（需再下载）或 InlineResult（b64_json 解码后）。
  - Outcome：最终结果，成功时携带图片字节，失败时携带可读原因。

# 响应解码

  - data[0].url：通过与图片下载相同的 HTTP 客户端获取字节。
  - data[0].b64_json：去除空白、补齐 '=' 到 4 的倍数后 base64 解码。
  - 两者皆无或 data 为空：返回 NO_IMAGE_DATA，与传输错误同样触发故障转移。
*/
package image
