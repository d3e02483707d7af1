package admission

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
	"gopkg.in/yaml.v3"

	"gas-relay-sol/internal/codec"
	"gas-relay-sol/internal/logic/outcome"
	"gas-relay-sol/internal/pkg/logger"
)

// Policy 是可注入的指令策略钩子：在固定校验链之后，对指令序列做
// 运营方自定义的准入判断。返回非 nil 即拒绝整笔交易。
type Policy interface {
	CheckInstructions(view *codec.TxView) error
}

// PolicyFunc 便于用函数直接充当 Policy
type PolicyFunc func(view *codec.TxView) error

func (f PolicyFunc) CheckInstructions(view *codec.TxView) error {
	return f(view)
}

// DefaultPolicy 是默认指令策略：
//  1. 拒绝任何以托管账户为转出方的 System Program 转账——赞助只代付手续费，
//     不允许交易顺带掏空托管账户本身的余额；
//  2. 配置了 program 白名单时，所有指令的 program 必须在名单内。
//
// LamportsPerSignature 作为费用上限参考值传入，供运营方扩展策略使用。
type DefaultPolicy struct {
	Payer                solana.PublicKey
	Allowlist            map[solana.PublicKey]struct{} // 为空表示不限制
	LamportsPerSignature uint64
}

// allowlistFile 是白名单文件的 yaml 结构
type allowlistFile struct {
	Programs []string `yaml:"programs"`
}

// LoadAllowlist 从 yaml 文件加载 program 白名单（base58 program id 列表）
func LoadAllowlist(path string) (map[solana.PublicKey]struct{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowlist file: %w", err)
	}
	var f allowlistFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse allowlist file: %w", err)
	}
	set := make(map[solana.PublicKey]struct{}, len(f.Programs))
	for _, s := range f.Programs {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("invalid program id %q: %w", s, err)
		}
		set[pk] = struct{}{}
	}
	return set, nil
}

// System Program 指令编号（u32 小端，见 system_instruction 布局）
const (
	sysInstructionTransfer = 2
)

// sysTransfer 是 System Program Transfer 指令的数据布局
type sysTransfer struct {
	Instruction uint32
	Lamports    uint64
}

func (p *DefaultPolicy) CheckInstructions(view *codec.TxView) error {
	for i, ix := range view.Instructions {
		program, ok := view.ProgramID(ix)
		if !ok {
			return outcome.Reject(outcome.KindPolicy, outcome.MsgProgramNotAllowed)
		}

		if len(p.Allowlist) > 0 {
			if _, ok := p.Allowlist[program]; !ok {
				logger.Warnf("[policy] program %s 不在白名单内, ixIndex=%d", program, i)
				return outcome.Reject(outcome.KindPolicy, outcome.MsgProgramNotAllowed)
			}
		}

		if program.Equals(solana.SystemProgramID) && p.drainsPayer(view, ix) {
			logger.Warnf("[policy] 指令尝试从托管账户转出余额, ixIndex=%d", i)
			return outcome.Reject(outcome.KindPolicy, outcome.MsgProgramNotAllowed)
		}
	}
	return nil
}

// drainsPayer 判断一条 System Program 指令是否从托管账户转出 lamports
func (p *DefaultPolicy) drainsPayer(view *codec.TxView, ix solana.CompiledInstruction) bool {
	// Transfer 布局固定 12 字节：u32 指令编号 + u64 lamports
	if len(ix.Data) != 12 {
		return false
	}
	var params sysTransfer
	if err := borsh.Deserialize(&params, ix.Data); err != nil {
		return false
	}
	if params.Instruction != sysInstructionTransfer {
		return false
	}
	// Transfer 的第 0 个账户是转出方
	if len(ix.Accounts) < 1 {
		return false
	}
	src, ok := view.AccountAt(ix.Accounts[0])
	if !ok {
		return false
	}
	return src.Equals(p.Payer)
}
