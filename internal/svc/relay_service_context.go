package svc

import (
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/gagliardetto/solana-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/limit"
	zredis "github.com/zeromicro/go-zero/core/stores/redis"

	"gas-relay-sol/internal/config"
	"gas-relay-sol/internal/dedup"
	"gas-relay-sol/internal/ledger"
	"gas-relay-sol/internal/logic/admission"
	"gas-relay-sol/internal/logic/sponsor"
	"gas-relay-sol/internal/mq"
	"gas-relay-sol/internal/pkg/logger"
)

// RelayServiceContext 包含代付签名服务的共享资源。
// 托管私钥只以签名能力（CoSigner）暴露给流水线，不再以原始字节流转。
type RelayServiceContext struct {
	Config    config.RelayConfig
	Signer    *sponsor.CoSigner
	Ledger    ledger.Client
	Dedup     dedup.Store
	Pipeline  *sponsor.Pipeline
	Limiter   *limit.PeriodLimit
	Redis     *goredis.Client
	Producer  *kafka.Producer
	Publisher *mq.OutcomePublisher
}

// NewRelayServiceContext 创建服务上下文
func NewRelayServiceContext(c config.RelayConfig) (*RelayServiceContext, error) {
	// 1. 托管密钥：进程启动加载一次，进程生命周期内只读
	if c.PayerSecret == "" {
		return nil, errors.New("payer_secret is empty")
	}
	key, err := solana.PrivateKeyFromBase58(c.PayerSecret)
	if err != nil {
		// 注意不要把密钥内容带进错误信息
		return nil, errors.New("failed to parse payer_secret as base58")
	}
	signer := sponsor.NewCoSigner(key)

	// 2. 账本 RPC 客户端
	if c.RpcConf.Endpoint == "" {
		return nil, errors.New("rpc.endpoint is empty")
	}
	commitment := ledger.ParseCommitment(c.RpcConf.Commitment)
	lc := ledger.NewRPCClient(
		c.RpcConf.Endpoint,
		commitment,
		time.Duration(c.RpcConf.ConfirmPollMs)*time.Millisecond,
	)

	ctx := &RelayServiceContext{
		Config: c,
		Signer: signer,
		Ledger: lc,
	}

	// 3. 判重缓存：单实例用进程内 map，多实例用 Redis SETNX
	ttl := time.Duration(c.DedupConf.TTLMs) * time.Millisecond
	switch c.DedupConf.Backend {
	case "", "memory":
		ctx.Dedup = dedup.NewMemoryStore(ttl)
	case "redis":
		if c.RedisAddr == "" {
			return nil, errors.New("dedup.backend is redis but redis_addr is empty")
		}
		ctx.Redis = goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		ctx.Dedup = dedup.NewRedisStore(ctx.Redis, ttl)
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", c.DedupConf.Backend)
	}

	// 4. 限流（可选，基于 Redis 周期计数）
	if c.RateLimitConf.Enabled {
		if c.RedisAddr == "" {
			return nil, errors.New("rate_limit.enabled but redis_addr is empty")
		}
		ctx.Limiter = limit.NewPeriodLimit(
			c.RateLimitConf.PeriodSec,
			c.RateLimitConf.Quota,
			zredis.New(c.RedisAddr),
			"relay:ratelimit",
		)
	}

	// 5. 结果事件上报（可选）
	var sink sponsor.EventSink
	if c.KafkaProducerConf.Brokers != "" {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		ctx.Producer = producer
		ctx.Publisher = mq.NewOutcomePublisher(
			producer,
			c.KafkaProducerConf.Topics.Outcome,
			c.KafkaProducerConf.Partitions.Outcome,
			5*time.Second,
		)
		sink = ctx.Publisher
	}

	// 6. 赞助策略与流水线
	mode, err := sponsor.ParseReturnMode(c.PolicyConf.ReturnSignature)
	if err != nil {
		return nil, err
	}

	var scorer sponsor.Scorer
	if mode == sponsor.ReturnScoredChallenge {
		if c.PolicyConf.ScoreEndpoint == "" {
			return nil, errors.New("return_signature is scoredChallenge but score_endpoint is empty")
		}
		scorer = sponsor.NewHTTPScorer(
			c.PolicyConf.ScoreEndpoint,
			time.Duration(c.PolicyConf.ScoreTimeoutMs)*time.Millisecond,
		)
	}

	policy := &admission.DefaultPolicy{
		Payer:                signer.PublicKey(),
		LamportsPerSignature: c.PolicyConf.LamportsPerSignature,
	}
	if c.PolicyConf.ProgramAllowlistFile != "" {
		allowlist, err := admission.LoadAllowlist(c.PolicyConf.ProgramAllowlistFile)
		if err != nil {
			return nil, err
		}
		policy.Allowlist = allowlist
		logger.Infof("program 白名单已加载: %d 个 program", len(allowlist))
	}

	validator := admission.NewValidator(
		signer.PublicKey(),
		c.PolicyConf.MaxSignatures,
		c.PolicyConf.RequireSecondarySignatures,
		policy,
		lc,
	)
	dispatcher := sponsor.NewDispatcher(
		mode,
		c.PolicyConf.MinScore,
		scorer,
		lc,
		time.Duration(c.RpcConf.ConfirmTimeoutMs)*time.Millisecond,
	)
	ctx.Pipeline = sponsor.NewPipeline(ctx.Dedup, validator, signer, dispatcher, lc, sink)

	logger.Infof("服务上下文初始化完成, payer=%s, mode=%s", signer.PublicKey(), c.PolicyConf.ReturnSignature)
	return ctx, nil
}

// RequestTimeoutMs 返回单请求总超时（毫秒），覆盖校验与模拟阶段的 RPC 调用
func (ctx *RelayServiceContext) RequestTimeoutMs() int {
	if ctx.Config.RpcConf.RequestTimeoutMs <= 0 {
		// 需要覆盖 none 模式下的提交与确认等待，默认放宽到 90s
		return 90000
	}
	return ctx.Config.RpcConf.RequestTimeoutMs
}

// Close 关闭服务上下文中的资源
func (ctx *RelayServiceContext) Close() {
	if ctx.Publisher != nil {
		ctx.Publisher.Close()
	}
	if ctx.Producer != nil {
		ctx.Producer.Close()
	}
	if ctx.Redis != nil {
		_ = ctx.Redis.Close()
	}
}
