package sponsor

import (
	"github.com/gagliardetto/solana-go"

	"gas-relay-sol/internal/codec"
	"gas-relay-sol/internal/logic/outcome"
	"gas-relay-sol/internal/pkg/logger"
)

// CoSigner 持有托管私钥，将 fee payer 签名写入槽 0。
// 纯密码学操作，失败对单笔请求是致命的，不重试。
type CoSigner struct {
	key solana.PrivateKey
}

func NewCoSigner(key solana.PrivateKey) *CoSigner {
	return &CoSigner{key: key}
}

// PublicKey 返回托管身份（fee payer 公钥）
func (s *CoSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// Sign 对 message 字节签名并填入槽 0。单签名交易中已有的槽 0 内容
// 会被直接覆盖（准入阶段已放行该情况）。
func (s *CoSigner) Sign(view *codec.TxView) error {
	msg, err := view.MessageBytes()
	if err != nil {
		logger.Errorf("[sponsor] message 序列化失败: %v", err)
		return outcome.Reject(outcome.KindInternal, outcome.MsgSigningFailed)
	}
	sig, err := s.key.Sign(msg)
	if err != nil {
		// 签名原语故障属于内部异常，对客户端保持不透明文案
		logger.Errorf("[sponsor] fee payer 签名失败: %v", err)
		return outcome.Reject(outcome.KindInternal, outcome.MsgSigningFailed)
	}
	view.Tx.Signatures[0] = sig
	return nil
}
