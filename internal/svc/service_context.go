package svc

import (
	"rent-reclaim-sol/internal/config"
	"rent-reclaim-sol/internal/mq"
	"rent-reclaim-sol/internal/rpc"
	"rent-reclaim-sol/internal/store"
	"rent-reclaim-sol/internal/wallet"
	"rent-reclaim-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 持有回收流程的全部外部资源。
// Redis / Kafka / 签名服务均可缺省：缺省时对应能力（历史持久化、
// 汇总通知、真实执行）自动禁用，扫描与 dry-run 不受影响。
type ServiceContext struct {
	Config    config.ReclaimerConfig
	RpcClient *rpc.SolanaClient
	History   *store.HistoryStore // 可能为 nil
	Producer  *kafka.Producer     // 可能为 nil
	Notifier  *mq.SummaryNotifier // 可能为 nil
	Signer    wallet.Signer       // 可能为 nil
}

// NewServiceContext 创建服务上下文
func NewServiceContext(c config.ReclaimerConfig) (*ServiceContext, error) {
	ctx := &ServiceContext{
		Config:    c,
		RpcClient: rpc.NewSolanaClient(c.RPCEndpoint()),
	}

	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		ctx.History = store.NewHistoryStore(rdb)
	}

	if c.KafkaProducerConf.Brokers != "" {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		ctx.Producer = producer
		ctx.Notifier = mq.NewSummaryNotifier(producer, c.KafkaProducerConf.Topics.Summary)
	}

	if c.SignerConf.Endpoint != "" {
		ctx.Signer = wallet.NewRemoteSigner(c.SignerConf.Endpoint)
	}

	logger.Infof("服务上下文初始化完成: endpoint=%s cluster=%s", c.RPCEndpoint(), c.Cluster())
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Close()
	}
}
