package config

import (
	"rent-reclaim-sol/internal/logic/domain"
	"rent-reclaim-sol/internal/mq"
	"rent-reclaim-sol/pkg/logger"
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

// RpcConfig 表示链上 RPC 配置
type RpcConfig struct {
	Cluster  string `yaml:"cluster"`  // mainnet-beta / devnet
	Endpoint string `yaml:"endpoint"` // 自定义 RPC 端点，为空时使用该网络默认公共端点
}

// ReclaimConfig 表示回收执行策略
type ReclaimConfig struct {
	MaxPerBatch      int `yaml:"max_per_batch"`      // 单批账户上限，0 表示按账户类型自动选择
	ConfirmRetries   int `yaml:"confirm_retries"`    // 确认轮询次数（默认 30）
	ConfirmDelayMs   int `yaml:"confirm_delay_ms"`   // 轮询间隔（毫秒，默认 1000）
	HistoryListLimit int `yaml:"history_list_limit"` // 查询历史记录时返回的条数上限
}

// SignerConfig 表示外部签名服务配置
type SignerConfig struct {
	Endpoint string `yaml:"endpoint"` // 为空表示未配置签名方（只能 dry-run）
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）

	Topics struct {
		Summary string `yaml:"summary"` // 回收汇总事件的 Kafka topic
	} `yaml:"topics"`

	Partitions struct {
		Summary int `yaml:"summary"` // summary topic 的分区数
	} `yaml:"partitions"`
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:      c.Brokers,
		BatchSize:    c.BatchSize,
		LingerMs:     c.LingerMs,
		SummaryTopic: c.Topics.Summary,
		Partitions:   c.Partitions.Summary,
	}
}

// ReclaimerConfig 是主配置结构体，驱动 rent 回收 CLI
type ReclaimerConfig struct {
	LogConf           LogConfig           `yaml:"logger"`         // 日志配置
	RpcConf           RpcConfig           `yaml:"rpc"`            // 链上 RPC 配置
	ReclaimConf       ReclaimConfig       `yaml:"reclaim"`        // 执行策略
	SignerConf        SignerConfig        `yaml:"signer"`         // 外部签名服务
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"` // Kafka 生产者配置（brokers 为空时禁用）

	RedisAddr string `yaml:"redis_addr"` // Redis 地址（为空时禁用历史持久化）
}

// Cluster 返回配置的目标网络
func (c *ReclaimerConfig) Cluster() domain.Cluster {
	return domain.ClusterFromName(c.RpcConf.Cluster)
}

// RPCEndpoint 返回生效的 RPC 端点
func (c *ReclaimerConfig) RPCEndpoint() string {
	if c.RpcConf.Endpoint != "" {
		return c.RpcConf.Endpoint
	}
	return c.Cluster().DefaultRPCEndpoint()
}
