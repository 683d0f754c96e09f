// Package config 提供插件的配置加载功能。
//
// 配置优先级：默认值 → YAML 文件 → 环境变量（前缀 IMAGEGEN）。
// 宿主平台负责把配置文件交给 Loader；本包只负责解析、覆盖与校验。
package config
