// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName  string `toml:"appName"`  // 应用名称，用于日志标识等
	Host     string `toml:"host"`     // 服务器监听地址，如 "0.0.0.0"
	Port     int    `toml:"port"`     // 服务器监听端口，如 8000
	Mode     string `toml:"mode"`     // 运行模式：dev 或 release
	ForceTLS bool   `toml:"forceTLS"` // 是否将 HTTP 请求重定向到 HTTPS
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// RedisConfig Redis 连接配置
// Host 为空时不连接 Redis，已读节流退化为进程内实现
type RedisConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"`
	Db       int    `toml:"db"`
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig 变更事件总线配置
type KafkaConfig struct {
	MessageMode string        `toml:"messageMode"` // "channel"（单机）或 "kafka"（多实例）
	HostPort    string        `toml:"hostPort"`    // Kafka 服务器地址，如 "localhost:9092"
	EventTopic  string        `toml:"eventTopic"`  // 会话变更事件主题
	Partition   int           `toml:"partition"`   // 分区数，创建主题时使用
	Timeout     time.Duration `toml:"timeout"`     // 读写超时（秒）
}

// JWTConfig 身份令牌校验配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // JWT 签名密钥，与身份提供方一致
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Access Token 有效期（分钟），仅本地签发时使用
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 范围 0-1023，分布式部署时每台机器需唯一
}

// ChatConfig 客服会话配置
type ChatConfig struct {
	WelcomeMessage          string `toml:"welcomeMessage"`          // 新会话的系统欢迎语
	ClosingMessage          string `toml:"closingMessage"`          // 会话关闭时的系统提示
	ReadDelayMs             int    `toml:"readDelayMs"`             // 会话可见后多久才视为"正在查看"
	ReadThrottleMs          int    `toml:"readThrottleMs"`          // 同一会话被动已读的最小间隔
	SubscribeTimeoutSeconds int    `toml:"subscribeTimeoutSeconds"` // 订阅首次加载的最长等待
}

const (
	defaultWelcomeMessage   = "您好，欢迎联系在线客服，我们会尽快为您服务。"
	defaultClosingMessage   = "本次会话已结束，如有其他问题欢迎随时联系我们。"
	defaultReadDelay        = time.Second
	defaultReadThrottle     = 2 * time.Second
	defaultSubscribeTimeout = 5 * time.Second
)

// Welcome 返回欢迎语，未配置时使用默认文案
func (c ChatConfig) Welcome() string {
	if c.WelcomeMessage == "" {
		return defaultWelcomeMessage
	}
	return c.WelcomeMessage
}

// Closing 返回关闭提示，未配置时使用默认文案
func (c ChatConfig) Closing() string {
	if c.ClosingMessage == "" {
		return defaultClosingMessage
	}
	return c.ClosingMessage
}

// ReadDelay 返回"正在查看"判定延迟
func (c ChatConfig) ReadDelay() time.Duration {
	if c.ReadDelayMs <= 0 {
		return defaultReadDelay
	}
	return time.Duration(c.ReadDelayMs) * time.Millisecond
}

// ReadThrottle 返回被动已读节流窗口
func (c ChatConfig) ReadThrottle() time.Duration {
	if c.ReadThrottleMs <= 0 {
		return defaultReadThrottle
	}
	return time.Duration(c.ReadThrottleMs) * time.Millisecond
}

// SubscribeTimeout 返回订阅首次加载的超时时间
func (c ChatConfig) SubscribeTimeout() time.Duration {
	if c.SubscribeTimeoutSeconds <= 0 {
		return defaultSubscribeTimeout
	}
	return time.Duration(c.SubscribeTimeoutSeconds) * time.Second
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	ChatConfig      `toml:"chatConfig"`
}

// config 全局配置单例，延迟加载
var config *Config

// searchPaths 候选配置文件路径（优先加载本地配置）
var searchPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

// LoadConfig 从候选路径加载配置文件，找到第一个可用的即停止
func LoadConfig() error {
	for _, path := range searchPaths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil
		}
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// LoadFile 从指定路径加载配置并替换全局实例
func LoadFile(path string) (*Config, error) {
	conf := new(Config)
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	config = conf
	return conf, nil
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载配置文件，找不到文件时使用默认值
func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
	}
	return config
}
