package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SimulateError 表示模拟执行预测到的链上失败，Detail 为结构化错误的字符串形式
type SimulateError struct {
	Detail string
	Logs   []string
}

func (e *SimulateError) Error() string {
	return e.Detail
}

// Client 是流水线消费的账本 RPC 能力集合。
// 所有方法都是阻塞网络调用，内部不重试；超时由调用方通过 ctx 控制。
type Client interface {
	// IsBlockhashValid 查询 blockhash 是否仍在有效窗口内
	IsBlockhashValid(ctx context.Context, blockhash solana.Hash) (bool, error)
	// Simulate 对已签名交易做非落账 dry-run；预测失败时返回 *SimulateError
	Simulate(ctx context.Context, tx *solana.Transaction) error
	// Submit 广播已签名交易（跳过 preflight，模拟已在流水线内完成）
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// Confirm 阻塞轮询签名状态，直到达到配置的确认级别或 ctx 超时
	Confirm(ctx context.Context, sig solana.Signature) error
}

type rpcClient struct {
	c          *rpc.Client
	commitment rpc.CommitmentType
	pollEvery  time.Duration
}

// NewRPCClient 创建生产环境的 RPC 客户端封装
func NewRPCClient(endpoint string, commitment rpc.CommitmentType, pollEvery time.Duration) Client {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	if pollEvery <= 0 {
		pollEvery = 500 * time.Millisecond
	}
	return &rpcClient{
		c:          rpc.New(endpoint),
		commitment: commitment,
		pollEvery:  pollEvery,
	}
}

// ParseCommitment 解析配置中的确认级别，未知值回落到 confirmed
func ParseCommitment(s string) rpc.CommitmentType {
	switch strings.ToLower(s) {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

func (r *rpcClient) IsBlockhashValid(ctx context.Context, blockhash solana.Hash) (bool, error) {
	out, err := r.c.IsBlockhashValid(ctx, blockhash, r.commitment)
	if err != nil {
		return false, fmt.Errorf("isBlockhashValid rpc: %w", err)
	}
	return out.Value, nil
}

func (r *rpcClient) Simulate(ctx context.Context, tx *solana.Transaction) error {
	out, err := r.c.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		Commitment: r.commitment,
	})
	if err != nil {
		return fmt.Errorf("simulateTransaction rpc: %w", err)
	}
	if out.Value != nil && out.Value.Err != nil {
		return &SimulateError{
			Detail: fmt.Sprintf("%v", out.Value.Err),
			Logs:   out.Value.Logs,
		}
	}
	return nil
}

func (r *rpcClient) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	// 模拟已作为流水线的必经阶段执行过，这里跳过节点侧 preflight，
	// 避免 blockhash 边界情况下的双重校验差异
	sig, err := r.c.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: r.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction rpc: %w", err)
	}
	return sig, nil
}

func (r *rpcClient) Confirm(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation timeout: %w", ctx.Err())
		case <-ticker.C:
		}

		out, err := r.c.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			// 查询失败不终止轮询，下一个 tick 再试；总时长由 ctx 限定
			continue
		}
		if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}
		st := out.Value[0]
		if st.Err != nil {
			return fmt.Errorf("transaction failed on chain: %v", st.Err)
		}
		if reached(st.ConfirmationStatus, r.commitment) {
			return nil
		}
	}
}

// reached 判断当前确认状态是否达到目标级别
func reached(status rpc.ConfirmationStatusType, target rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case "processed":
			return 1
		case "confirmed":
			return 2
		case "finalized":
			return 3
		default:
			return 0
		}
	}
	return rank(string(status)) >= rank(string(target))
}
