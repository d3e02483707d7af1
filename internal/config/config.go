package config

import (
	"gas-relay-sol/internal/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig 表示 Solana RPC 节点相关配置
type RpcConfig struct {
	Endpoint         string `yaml:"endpoint"`           // RPC 节点地址
	Commitment       string `yaml:"commitment"`         // 确认级别：processed / confirmed / finalized，默认 confirmed
	RequestTimeoutMs int    `yaml:"request_timeout_ms"` // 单次 RPC 调用超时（毫秒）
	ConfirmTimeoutMs int    `yaml:"confirm_timeout_ms"` // 等待交易确认的总超时（毫秒）
	ConfirmPollMs    int    `yaml:"confirm_poll_ms"`    // 确认状态轮询间隔（毫秒）
}

// KafkaProducerConfig 表示赞助结果事件的 Kafka 生产者配置
type KafkaProducerConfig struct {
	Brokers   string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔；为空则不启用事件上报
	BatchSize int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）

	Topics struct {
		Outcome string `yaml:"outcome"` // 赞助结果事件的 Kafka topic
	} `yaml:"topics"`

	Partitions struct {
		Outcome int `yaml:"outcome"` // outcome topic 的分区数
	} `yaml:"partitions"`
}

// DedupConfig 表示交易判重缓存配置
type DedupConfig struct {
	Backend string `yaml:"backend"` // "memory"（单实例）或 "redis"（多实例）
	TTLMs   int    `yaml:"ttl_ms"`  // 锁存活时间（毫秒），默认 5000
}

// RateLimitConfig 表示进入流水线前的请求限流配置（基于 Redis 周期计数）
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"`
	PeriodSec int  `yaml:"period_sec"` // 统计窗口（秒）
	Quota     int  `yaml:"quota"`      // 窗口内每个来源 IP 的最大请求数
}

// PolicyConfig 表示赞助策略配置
type PolicyConfig struct {
	MaxSignatures        int    `yaml:"max_signatures"`         // required-signature 数量上限
	LamportsPerSignature uint64 `yaml:"lamports_per_signature"` // 每个签名可接受的费用上限（供指令策略使用）

	// 签名返回模式：none（代为提交并等待确认）/ allowAll（签名后直接返回）/
	// scoredChallenge（携带风控 token 且得分达标才返回）
	ReturnSignature string  `yaml:"return_signature"`
	MinScore        float64 `yaml:"min_score"`       // scoredChallenge 模式的最低可接受得分
	ScoreEndpoint   string  `yaml:"score_endpoint"`  // 外部风控打分服务地址
	ScoreTimeoutMs  int     `yaml:"score_timeout_ms"` // 打分调用超时（毫秒）

	// 多签名交易中，是否要求所有次级签名槽已填充。
	// 默认 false：允许仅 fee payer 签名的多方交易（自动化运维场景）。
	RequireSecondarySignatures bool `yaml:"require_secondary_signatures"`

	// program 白名单文件（yaml，base58 program id 列表）；为空则不限制 program
	ProgramAllowlistFile string `yaml:"program_allowlist_file"`
}

// RelayConfig 是主配置结构体，用于驱动代付签名服务
type RelayConfig struct {
	LogConf           LogConfig           `yaml:"logger"`         // 日志配置
	RpcConf           RpcConfig           `yaml:"rpc"`            // Solana RPC 配置
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"` // 结果事件上报配置
	DedupConf         DedupConfig         `yaml:"dedup"`          // 判重缓存配置
	RateLimitConf     RateLimitConfig     `yaml:"rate_limit"`     // 限流配置
	PolicyConf        PolicyConfig        `yaml:"policy"`         // 赞助策略配置

	ListenAddr string `yaml:"listen_addr"` // HTTP 监听地址，例如 ":8080"
	RedisAddr  string `yaml:"redis_addr"`  // Redis 地址（判重 redis 后端与限流共用）

	// 托管 fee payer 私钥（base58）。仅在进程启动时读取一次，
	// 不落盘、不打日志；生产环境建议通过环境变量注入后引用。
	PayerSecret string `yaml:"payer_secret"`
}
