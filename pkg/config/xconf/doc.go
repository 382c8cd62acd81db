// Package xconf 提供分层配置加载，基于 koanf 实现。
//
// # 加载顺序
//
// 后加载的层覆盖先加载的层：
//
//  1. 默认值（WithDefaults，confmap provider）
//  2. 配置文件（New 使用 file provider，NewFromBytes 使用 rawbytes provider）
//  3. 环境变量（WithEnvPrefix，env/v2 provider）
//
// NewFromEnv 跳过第 2 层，适用于没有配置文件的命令行场景。
//
// # 环境变量映射
//
// 去掉前缀后转为小写，双下划线 "__" 表示层级：
//
//	XASC_AUTH__KEY_ID=ABC123   →  auth.key_id
//	XASC_TIMEOUT=30s           →  timeout
//
// # 支持的格式
//
//   - YAML（默认，推荐）：.yaml, .yml
//   - JSON：.json
//
// # Unmarshal
//
// Unmarshal 使用 mapstructure 进行反序列化，允许弱类型转换，
// 字符串形式的时长（"20m"）可直接解码为 time.Duration。
//
// # 并发安全
//
// Reload 在全部层重新加载成功后才替换 koanf 实例，失败时保留旧配置。
// Client() 返回的指针在 Reload() 后仍然有效，但指向旧配置。
package xconf
