package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述服务端运行时行为。HubRoot 是所有仓库共享的存储根目录，
// 可被 FAKE_HUB_ROOT 环境变量覆盖。MaxWalkDepth/MaxWalkEntries 约束单次
// 树遍历，0 表示不限制。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	HubRoot         string   `mapstructure:"HubRoot"`
	MaxWalkDepth    int      `mapstructure:"MaxWalkDepth"`
	MaxWalkEntries  int      `mapstructure:"MaxWalkEntries"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
}

// AccessLogConfig 控制请求日志中间件，对应旧服务的 LOG_* 环境开关。
type AccessLogConfig struct {
	Enabled        bool `mapstructure:"LogRequests"`
	BodyMax        int  `mapstructure:"LogBodyMax"`
	Redact         bool `mapstructure:"LogRedact"`
	LogRespHeaders bool `mapstructure:"LogRespHeaders"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig    `mapstructure:",squash"`
	AccessLog AccessLogConfig `mapstructure:",squash"`
}
