package codec

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"gas-relay-sol/internal/logic/outcome"
	"gas-relay-sol/internal/pkg/types"
)

// TxView 是 legacy / v0 两种编码统一归一化后的交易视图。
// 解码之后的所有阶段只操作 TxView，不再区分编码变体。
type TxView struct {
	Tx      *solana.Transaction
	Version solana.MessageVersion

	// 以下字段在 Decode 时从 message 摘出，便于校验链直接使用
	AccountKeys  []solana.PublicKey
	Blockhash    solana.Hash
	NumRequired  int
	Instructions []solana.CompiledInstruction
}

// Decode 解析 base64 的 wire 交易并归一化为 TxView。
// 任何截断、畸形输入都映射为 decode 拒绝，不向上抛 panic。
func Decode(b64 string) (view *TxView, err error) {
	defer func() {
		// 二进制解码层对畸形输入存在 panic 路径，统一兜底为 decode 错误
		if r := recover(); r != nil {
			view = nil
			err = outcome.Reject(outcome.KindDecode, outcome.MsgInvalidTransaction)
		}
	}()

	raw, derr := base64.StdEncoding.DecodeString(b64)
	if derr != nil || len(raw) == 0 {
		return nil, outcome.Reject(outcome.KindDecode, outcome.MsgInvalidTransaction)
	}

	tx, derr := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if derr != nil {
		return nil, outcome.Reject(outcome.KindDecode, outcome.MsgInvalidTransaction)
	}
	return newView(tx)
}

func newView(tx *solana.Transaction) (*TxView, error) {
	required := int(tx.Message.Header.NumRequiredSignatures)

	if len(tx.Message.AccountKeys) == 0 {
		return nil, outcome.Reject(outcome.KindDecode, outcome.MsgInvalidTransaction)
	}
	// wire 上的签名槽数量不允许超过声明值；positions 与前 N 个账户对齐
	if len(tx.Signatures) > required {
		return nil, outcome.Reject(outcome.KindDecode, outcome.MsgInvalidTransaction)
	}
	if required > len(tx.Message.AccountKeys) {
		return nil, outcome.Reject(outcome.KindDecode, outcome.MsgInvalidTransaction)
	}

	// 槽位补齐到声明数量，空槽为零值签名（与槽位数==required 的不变式对齐）
	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}

	return &TxView{
		Tx:           tx,
		Version:      tx.Message.GetVersion(),
		AccountKeys:  tx.Message.AccountKeys,
		Blockhash:    tx.Message.RecentBlockhash,
		NumRequired:  required,
		Instructions: tx.Message.Instructions,
	}, nil
}

// FeePayer 返回 fee payer 账户（账户表第 0 位）
func (v *TxView) FeePayer() solana.PublicKey {
	return v.AccountKeys[0]
}

// Signatures 返回与账户表前 NumRequired 位对齐的签名槽
func (v *TxView) Signatures() []solana.Signature {
	return v.Tx.Signatures
}

// MessageBytes 返回待签名的 message 字节（含 v0 的版本前缀）
func (v *TxView) MessageBytes() ([]byte, error) {
	b, err := v.Tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return b, nil
}

// MessageDigest 返回 message 字节的 SHA-256 摘要。
// 摘要只覆盖 message 本身，不含签名段：增删签名无法绕过判重锁。
func (v *TxView) MessageDigest() (types.Hash, error) {
	b, err := v.MessageBytes()
	if err != nil {
		return types.Hash{}, err
	}
	return types.HashOf(b), nil
}

// ProgramID 解析指令的 program 账户；索引越界返回 false
func (v *TxView) ProgramID(ix solana.CompiledInstruction) (solana.PublicKey, bool) {
	idx := int(ix.ProgramIDIndex)
	if idx < 0 || idx >= len(v.AccountKeys) {
		return solana.PublicKey{}, false
	}
	return v.AccountKeys[idx], true
}

// AccountAt 解析指令引用的账户；索引越界返回 false
func (v *TxView) AccountAt(idx uint16) (solana.PublicKey, bool) {
	if int(idx) >= len(v.AccountKeys) {
		return solana.PublicKey{}, false
	}
	return v.AccountKeys[idx], true
}

// Reserialize 产出签名后的规范 wire 形式（base64）
func (v *TxView) Reserialize() (string, error) {
	raw, err := v.Tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
