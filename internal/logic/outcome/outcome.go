package outcome

import (
	"errors"
	"fmt"
)

// 对客户端暴露的稳定错误文案。校验失败原因只通过这些单行文案返回，
// 内部细节（RPC 报错、堆栈）只进日志。
const (
	MsgInvalidTransaction      = "invalid transaction"
	MsgInvalidFeePayer         = "invalid fee payer"
	MsgMissingRecentBlockhash  = "missing recent blockhash"
	MsgBlockhashNotFound       = "blockhash not found or expired"
	MsgNoSignatures            = "no signatures"
	MsgTooManySignatures       = "too many signatures"
	MsgInvalidFeePayerSig      = "invalid fee payer signature"
	MsgMissingRequiredSig      = "missing required signature"
	MsgProgramNotAllowed       = "program not allowed"
	MsgDuplicateTransaction    = "duplicate transaction"
	MsgSigningFailed           = "signing failed"
	MsgSimulationFailedPrefix  = "simulation failed"
	MsgSubmissionFailed        = "submission failed"
	MsgAntiSpamCheckFailed     = "anti-spam check failed"
	MsgInternalError           = "internal error"
)

// Kind 表示错误分类，用于运维侧区分普通校验拒绝与内部故障
type Kind int

const (
	KindDecode Kind = iota + 1
	KindPolicy
	KindDuplicate
	KindSimulation
	KindSubmission
	KindAntiAbuse
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindPolicy:
		return "policy"
	case KindDuplicate:
		return "duplicate"
	case KindSimulation:
		return "simulation"
	case KindSubmission:
		return "submission"
	case KindAntiAbuse:
		return "anti_abuse"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// RejectError 表示流水线某一阶段的拒绝，Msg 即返回给客户端的稳定文案
type RejectError struct {
	Kind Kind
	Msg  string
}

func (e *RejectError) Error() string {
	return e.Msg
}

func Reject(kind Kind, msg string) error {
	return &RejectError{Kind: kind, Msg: msg}
}

func Rejectf(kind Kind, format string, args ...interface{}) error {
	return &RejectError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Result 是对外统一的响应结构：status 为 "ok" 或 "error"
type Result struct {
	Status    string `json:"status"`
	Signature string `json:"signature,omitempty"`
	// 签名后交易（base64），仅在 allowAll / scoredChallenge 模式下返回，
	// 由调用方自行广播
	Transaction string `json:"transaction,omitempty"`
	Message     string `json:"message,omitempty"`
}

func Ok(signature, signedTx string) Result {
	return Result{Status: "ok", Signature: signature, Transaction: signedTx}
}

// FromError 把任意错误折叠成客户端可见的 Result。
// 非 RejectError 的错误一律视为内部故障，返回不透明文案。
func FromError(err error) Result {
	var rej *RejectError
	if errors.As(err, &rej) {
		return Result{Status: "error", Message: rej.Msg}
	}
	return Result{Status: "error", Message: MsgInternalError}
}

// KindOf 返回错误的分类，未知错误归为 KindInternal
func KindOf(err error) Kind {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Kind
	}
	return KindInternal
}
