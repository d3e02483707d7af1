package sponsor

import (
	"context"
	"fmt"
	"time"

	"gas-relay-sol/internal/codec"
	"gas-relay-sol/internal/dedup"
	"gas-relay-sol/internal/ledger"
	"gas-relay-sol/internal/logic/admission"
	"gas-relay-sol/internal/logic/outcome"
	"gas-relay-sol/internal/pkg/logger"
	"gas-relay-sol/internal/pkg/types"
)

// Event 是一次赞助请求的结果事件，供下游审计/计费消费
type Event struct {
	Digest    string `json:"digest"`              // message 摘要（base58）
	Status    string `json:"status"`              // ok / error
	Message   string `json:"message,omitempty"`   // 客户端可见文案
	Signature string `json:"signature,omitempty"` // 成功时的交易签名
	ElapsedMs int64  `json:"elapsed_ms"`
	Timestamp int64  `json:"timestamp"` // Unix 秒
}

// EventSink 接收结果事件；实现必须非阻塞（见 mq.OutcomePublisher）
type EventSink interface {
	Publish(ev Event)
}

// Pipeline 串起准入与赞助全流程：
// 解码 → 判重锁 → 校验链 → 共签 → 模拟 → 分发 → 出参。
// 除判重缓存外各请求互不共享状态；任一阶段失败立即短路为拒绝。
type Pipeline struct {
	dedup      dedup.Store
	validator  *admission.Validator
	signer     *CoSigner
	dispatcher *Dispatcher
	ledger     ledger.Client
	sink       EventSink // 可为 nil
}

func NewPipeline(
	store dedup.Store,
	validator *admission.Validator,
	signer *CoSigner,
	dispatcher *Dispatcher,
	lc ledger.Client,
	sink EventSink,
) *Pipeline {
	return &Pipeline{
		dedup:      store,
		validator:  validator,
		signer:     signer,
		dispatcher: dispatcher,
		ledger:     lc,
		sink:       sink,
	}
}

// Sponsor 处理一笔 wire 交易（base64），返回统一响应结构。
// challenge 仅在 scoredChallenge 模式下使用。
func (p *Pipeline) Sponsor(ctx context.Context, rawTx, challenge string) outcome.Result {
	start := time.Now()

	res, digest := p.run(ctx, rawTx, challenge)
	p.emit(digest, res, time.Since(start))
	return res
}

func (p *Pipeline) run(ctx context.Context, rawTx, challenge string) (outcome.Result, types.Hash) {
	// 1. 解码并归一化（legacy / v0 在此收敛）
	view, err := codec.Decode(rawTx)
	if err != nil {
		return outcome.FromError(err), types.Hash{}
	}

	// 2. 判重锁：以 message 摘要为键，TTL 窗口内同一摘要最多放行一次
	digest, err := view.MessageDigest()
	if err != nil {
		logger.Errorf("[pipeline] message 摘要计算失败: %v", err)
		return outcome.FromError(outcome.Reject(outcome.KindInternal, outcome.MsgInternalError)), types.Hash{}
	}
	locked, err := p.dedup.CheckAndLock(ctx, digest)
	if err != nil {
		// 判重存储不可用时宁可拒绝，也不放行潜在的重复赞助
		logger.Errorf("[pipeline] 判重存储访问失败: digest=%s, err=%v", digest, err)
		return outcome.FromError(outcome.Reject(outcome.KindDuplicate, outcome.MsgDuplicateTransaction)), digest
	}
	if locked {
		return outcome.FromError(outcome.Reject(outcome.KindDuplicate, outcome.MsgDuplicateTransaction)), digest
	}

	// 3. 准入校验链
	if err := p.validator.Validate(ctx, view); err != nil {
		return outcome.FromError(err), digest
	}

	// 4. 共签
	if err := p.signer.Sign(view); err != nil {
		return outcome.FromError(err), digest
	}

	// 5. 模拟：无条件执行，防止托管账户为必然失败的交易白付手续费
	if err := p.simulate(ctx, view); err != nil {
		return outcome.FromError(err), digest
	}

	// 6. 分发
	res, err := p.dispatcher.Dispatch(ctx, view, challenge)
	if err != nil {
		return outcome.FromError(err), digest
	}
	return res, digest
}

func (p *Pipeline) simulate(ctx context.Context, view *codec.TxView) error {
	err := p.ledger.Simulate(ctx, view.Tx)
	if err == nil {
		return nil
	}
	if simErr, ok := err.(*ledger.SimulateError); ok {
		logger.Warnf("[pipeline] 模拟执行预测失败: %s, logs=%v", simErr.Detail, simErr.Logs)
		return outcome.Reject(outcome.KindSimulation,
			fmt.Sprintf("%s: %s", outcome.MsgSimulationFailedPrefix, simErr.Detail))
	}
	// RPC 层故障：客户端的补救方式同样是重试，文案保持同一分类
	logger.Warnf("[pipeline] 模拟调用失败: %v", err)
	return outcome.Reject(outcome.KindSimulation, outcome.MsgSimulationFailedPrefix)
}

func (p *Pipeline) emit(digest types.Hash, res outcome.Result, elapsed time.Duration) {
	if p.sink == nil {
		return
	}
	ev := Event{
		Digest:    digest.String(),
		Status:    res.Status,
		Message:   res.Message,
		Signature: res.Signature,
		ElapsedMs: elapsed.Milliseconds(),
		Timestamp: time.Now().Unix(),
	}
	p.sink.Publish(ev)
}
