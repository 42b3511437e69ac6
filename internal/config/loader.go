package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// 配置文件可以不存在，此时全部使用默认值（仍然应用环境变量覆盖）。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Global.HubRoot)
	if err != nil {
		return nil, fmt.Errorf("无法解析存储根目录: %w", err)
	}
	cfg.Global.HubRoot = absRoot

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 8000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("HubRoot", "fake_hub")
	v.SetDefault("MaxWalkDepth", 32)
	v.SetDefault("MaxWalkEntries", 100000)
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("LogRequests", true)
	v.SetDefault("LogBodyMax", 4096)
	v.SetDefault("LogRedact", true)
	v.SetDefault("LogRespHeaders", true)
}

func applyDefaults(cfg *Config) {
	if cfg.Global.ListenPort == 0 {
		cfg.Global.ListenPort = 8000
	}
	if cfg.Global.UpstreamTimeout.DurationValue() == 0 {
		cfg.Global.UpstreamTimeout = Duration(30 * time.Second)
	}
	if cfg.AccessLog.BodyMax == 0 {
		cfg.AccessLog.BodyMax = 4096
	}
}

// applyEnvOverrides 保留旧服务的环境变量入口：FAKE_HUB_ROOT 覆盖存储根，
// LOG_REQUESTS=0/false 关闭访问日志。
func applyEnvOverrides(cfg *Config) {
	if root := os.Getenv("FAKE_HUB_ROOT"); root != "" {
		cfg.Global.HubRoot = root
	}
	if raw := os.Getenv("LOG_REQUESTS"); raw != "" {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			cfg.AccessLog.Enabled = enabled
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
