package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// 与官方 adb 客户端相同的环境变量
const (
	EnvServerAddress = "ANDROID_ADB_SERVER_ADDRESS"
	EnvServerPort    = "ANDROID_ADB_SERVER_PORT"
)

// Server ADB 服务器地址
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Timeouts 连接与读取超时，0 表示不限制
type Timeouts struct {
	Connect time.Duration `yaml:"connect"`
	Read    time.Duration `yaml:"read"`
}

// Log 日志输出设置
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// History 设备历史数据库位置
type History struct {
	Dir string `yaml:"dir"`
}

// Config 顶层配置
type Config struct {
	Server   Server   `yaml:"server"`
	Timeouts Timeouts `yaml:"timeouts"`
	Log      Log      `yaml:"log"`
	History  History  `yaml:"history"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:   Server{Host: "127.0.0.1", Port: 5037},
		Timeouts: Timeouts{Connect: 10 * time.Second},
		Log:      Log{Level: "info", Format: "text"},
		History:  History{Dir: ConfigDir()},
	}
}

// ConfigDir 配置目录，优先使用 XDG_CONFIG_HOME
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "adb-host")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".adb-host"
	}
	return filepath.Join(home, ".config", "adb-host")
}

// ConfigPath 默认配置文件路径
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Load 读取配置文件，文件不存在时使用默认值；path 为空时使用 ConfigPath()
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "read config")
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnv 环境变量覆盖配置文件
func (c *Config) applyEnv() error {
	if host := os.Getenv(EnvServerAddress); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv(EnvServerPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return errors.Wrapf(err, "parse %s", EnvServerPort)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Timeouts.Connect < 0 || c.Timeouts.Read < 0 {
		return errors.New("timeouts must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Save 把配置写入 path，path 为空时使用 ConfigPath()
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}
