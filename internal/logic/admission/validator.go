package admission

import (
	"context"
	"crypto/ed25519"

	"github.com/gagliardetto/solana-go"

	"gas-relay-sol/internal/codec"
	"gas-relay-sol/internal/ledger"
	"gas-relay-sol/internal/logic/outcome"
	"gas-relay-sol/internal/pkg/logger"
)

// Validator 是线性准入校验链：按固定顺序执行各阶段，第一个失败的
// 阶段带着稳定错误文案中止整笔请求。
type Validator struct {
	payer            solana.PublicKey
	maxSignatures    int
	requireSecondary bool
	policy           Policy
	ledger           ledger.Client
}

// NewValidator 构造校验链。policy 为 nil 时跳过指令策略阶段。
func NewValidator(
	payer solana.PublicKey,
	maxSignatures int,
	requireSecondary bool,
	policy Policy,
	lc ledger.Client,
) *Validator {
	if maxSignatures <= 0 {
		maxSignatures = 2
	}
	return &Validator{
		payer:            payer,
		maxSignatures:    maxSignatures,
		requireSecondary: requireSecondary,
		policy:           policy,
		ledger:           lc,
	}
}

// Validate 依次执行各阶段：
// fee payer 身份 → blockhash 非空 → 签名数量上下界 → blockhash 有效性（RPC）→
// fee payer 槽位空置 → 次级签名一致性 → 指令策略钩子。
// 本地廉价检查全部先于网络调用，数量越界的交易不产生任何 RPC 开销。
func (v *Validator) Validate(ctx context.Context, view *codec.TxView) error {
	if err := v.checkFeePayer(view); err != nil {
		return err
	}
	if view.Blockhash.IsZero() {
		return outcome.Reject(outcome.KindPolicy, outcome.MsgMissingRecentBlockhash)
	}
	if err := v.checkSignatureCount(view); err != nil {
		return err
	}
	if err := v.checkBlockhash(ctx, view); err != nil {
		return err
	}
	if err := v.checkFeePayerSlot(view); err != nil {
		return err
	}
	if err := v.checkSecondarySlots(view); err != nil {
		return err
	}
	if v.policy != nil {
		if err := v.policy.CheckInstructions(view); err != nil {
			return err
		}
	}
	return nil
}

// 账户表第 0 位必须是托管身份
func (v *Validator) checkFeePayer(view *codec.TxView) error {
	if !view.FeePayer().Equals(v.payer) {
		return outcome.Reject(outcome.KindPolicy, outcome.MsgInvalidFeePayer)
	}
	return nil
}

// blockhash 在当前账本状态下必须仍有效（阻塞 RPC 查询，无内部重试）
func (v *Validator) checkBlockhash(ctx context.Context, view *codec.TxView) error {
	valid, err := v.ledger.IsBlockhashValid(ctx, view.Blockhash)
	if err != nil {
		// RPC 不可用与过期在客户端视角等价：重新提交即可。细节只进日志。
		logger.Warnf("[admission] blockhash 有效性查询失败: %v", err)
		return outcome.Reject(outcome.KindPolicy, outcome.MsgBlockhashNotFound)
	}
	if !valid {
		return outcome.Reject(outcome.KindPolicy, outcome.MsgBlockhashNotFound)
	}
	return nil
}

// 签名数量上下界
func (v *Validator) checkSignatureCount(view *codec.TxView) error {
	if view.NumRequired < 1 || len(view.Signatures()) == 0 {
		return outcome.Reject(outcome.KindPolicy, outcome.MsgNoSignatures)
	}
	if view.NumRequired > v.maxSignatures {
		return outcome.Reject(outcome.KindPolicy, outcome.MsgTooManySignatures)
	}
	return nil
}

// fee payer 槽位（槽 0）必须空置，调用方不得伪造该签名。
// 例外：单签名交易（唯一签名人就是 fee payer）允许已填充，后续会被覆盖。
func (v *Validator) checkFeePayerSlot(view *codec.TxView) error {
	if view.NumRequired == 1 {
		return nil
	}
	if !view.Signatures()[0].IsZero() {
		return outcome.Reject(outcome.KindPolicy, outcome.MsgInvalidFeePayerSig)
	}
	return nil
}

// 多签名交易的次级槽位必须状态一致——全空或全满。
// 全满时逐个验签；全空仅在 requireSecondary 配置下拒绝。
func (v *Validator) checkSecondarySlots(view *codec.TxView) error {
	if view.NumRequired <= 1 {
		return nil
	}

	sigs := view.Signatures()
	populated := 0
	for _, sig := range sigs[1:view.NumRequired] {
		if !sig.IsZero() {
			populated++
		}
	}
	secondary := view.NumRequired - 1

	switch {
	case populated == 0:
		if v.requireSecondary {
			return outcome.Reject(outcome.KindPolicy, outcome.MsgMissingRequiredSig)
		}
		return nil
	case populated < secondary:
		// 混合状态：部分已签、部分空
		return outcome.Reject(outcome.KindPolicy, outcome.MsgMissingRequiredSig)
	}

	// 全满：已填充的签名必须能对 message 字节验签通过
	msg, err := view.MessageBytes()
	if err != nil {
		return outcome.Reject(outcome.KindInternal, outcome.MsgInternalError)
	}
	for i := 1; i < view.NumRequired; i++ {
		key := view.AccountKeys[i]
		if !ed25519.Verify(ed25519.PublicKey(key[:]), msg, sigs[i][:]) {
			logger.Warnf("[admission] 次级签名验签失败, slot=%d, key=%s", i, key)
			return outcome.Reject(outcome.KindPolicy, outcome.MsgMissingRequiredSig)
		}
	}
	return nil
}
