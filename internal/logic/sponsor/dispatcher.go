package sponsor

import (
	"context"
	"fmt"
	"time"

	"gas-relay-sol/internal/codec"
	"gas-relay-sol/internal/ledger"
	"gas-relay-sol/internal/logic/outcome"
	"gas-relay-sol/internal/pkg/logger"
)

// ReturnMode 是签名返回模式的封闭变体
type ReturnMode int

const (
	// ReturnNone 代为提交并阻塞等待确认
	ReturnNone ReturnMode = iota
	// ReturnAllowAll 签名后直接返回，由调用方自行广播
	ReturnAllowAll
	// ReturnScoredChallenge 调用方携带风控 token 且得分达标才返回
	ReturnScoredChallenge
)

// ParseReturnMode 解析配置值；未知值报错，避免静默放宽策略
func ParseReturnMode(s string) (ReturnMode, error) {
	switch s {
	case "", "none":
		return ReturnNone, nil
	case "allowAll":
		return ReturnAllowAll, nil
	case "scoredChallenge":
		return ReturnScoredChallenge, nil
	default:
		return 0, fmt.Errorf("unknown return_signature mode %q", s)
	}
}

// Dispatcher 按 ReturnMode 决定已签名交易的去向
type Dispatcher struct {
	mode           ReturnMode
	minScore       float64
	scorer         Scorer
	ledger         ledger.Client
	confirmTimeout time.Duration
}

func NewDispatcher(
	mode ReturnMode,
	minScore float64,
	scorer Scorer,
	lc ledger.Client,
	confirmTimeout time.Duration,
) *Dispatcher {
	if confirmTimeout <= 0 {
		confirmTimeout = 60 * time.Second
	}
	return &Dispatcher{
		mode:           mode,
		minScore:       minScore,
		scorer:         scorer,
		ledger:         lc,
		confirmTimeout: confirmTimeout,
	}
}

// Dispatch 处理已签名、已模拟通过的交易，返回最终响应。
// 三种模式必须穷尽处理，新增变体时此处编译期暴露遗漏。
func (d *Dispatcher) Dispatch(ctx context.Context, view *codec.TxView, challenge string) (outcome.Result, error) {
	switch d.mode {
	case ReturnNone:
		return d.submitAndConfirm(ctx, view)
	case ReturnAllowAll:
		return d.returnSigned(view)
	case ReturnScoredChallenge:
		if err := d.checkChallenge(ctx, challenge); err != nil {
			return outcome.Result{}, err
		}
		return d.returnSigned(view)
	default:
		return outcome.Result{}, outcome.Reject(outcome.KindInternal, outcome.MsgInternalError)
	}
}

func (d *Dispatcher) submitAndConfirm(ctx context.Context, view *codec.TxView) (outcome.Result, error) {
	sig, err := d.ledger.Submit(ctx, view.Tx)
	if err != nil {
		logger.Warnf("[sponsor] 交易广播失败: %v", err)
		return outcome.Result{}, outcome.Reject(outcome.KindSubmission, outcome.MsgSubmissionFailed)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, d.confirmTimeout)
	defer cancel()
	if err := d.ledger.Confirm(confirmCtx, sig); err != nil {
		logger.Warnf("[sponsor] 交易确认失败: sig=%s, err=%v", sig, err)
		return outcome.Result{}, outcome.Reject(outcome.KindSubmission, outcome.MsgSubmissionFailed)
	}
	return outcome.Ok(sig.String(), ""), nil
}

func (d *Dispatcher) returnSigned(view *codec.TxView) (outcome.Result, error) {
	signed, err := view.Reserialize()
	if err != nil {
		logger.Errorf("[sponsor] 签名后交易序列化失败: %v", err)
		return outcome.Result{}, outcome.Reject(outcome.KindInternal, outcome.MsgInternalError)
	}
	// 签名 id 即 fee payer 槽位的签名
	return outcome.Ok(view.Signatures()[0].String(), signed), nil
}

func (d *Dispatcher) checkChallenge(ctx context.Context, challenge string) error {
	if challenge == "" || d.scorer == nil {
		return outcome.Reject(outcome.KindAntiAbuse, outcome.MsgAntiSpamCheckFailed)
	}
	score, err := d.scorer.Score(ctx, challenge)
	if err != nil {
		logger.Warnf("[sponsor] 风控打分调用失败: %v", err)
		return outcome.Reject(outcome.KindAntiAbuse, outcome.MsgAntiSpamCheckFailed)
	}
	if score < d.minScore {
		return outcome.Reject(outcome.KindAntiAbuse, outcome.MsgAntiSpamCheckFailed)
	}
	return nil
}
