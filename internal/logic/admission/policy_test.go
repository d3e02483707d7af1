package admission

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-relay-sol/internal/codec"
	"gas-relay-sol/internal/logic/outcome"
)

func TestDefaultPolicy_RejectsPayerDrain(t *testing.T) {
	payer := solana.NewWallet()
	recipient := solana.NewWallet()

	// 交易试图把托管账户自身的 lamports 转走
	ix := system.NewTransferInstruction(50_000, payer.PublicKey(), recipient.PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{0x04},
		solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)
	view := decodeTx(t, tx)

	p := &DefaultPolicy{Payer: payer.PublicKey()}
	err = p.CheckInstructions(view)
	require.Error(t, err)
	assert.Equal(t, outcome.MsgProgramNotAllowed, err.Error())
}

func TestDefaultPolicy_AllowsUserTransfer(t *testing.T) {
	payer := solana.NewWallet()
	user := solana.NewWallet()

	view := multiSignerView(t, payer.PublicKey(), user)
	p := &DefaultPolicy{Payer: payer.PublicKey()}
	assert.NoError(t, p.CheckInstructions(view))
}

func TestDefaultPolicy_Allowlist(t *testing.T) {
	payer := solana.NewWallet()
	user := solana.NewWallet()
	view := multiSignerView(t, payer.PublicKey(), user)

	// 白名单不含 System Program 时拒绝
	p := &DefaultPolicy{
		Payer:     payer.PublicKey(),
		Allowlist: map[solana.PublicKey]struct{}{solana.TokenProgramID: {}},
	}
	err := p.CheckInstructions(view)
	require.Error(t, err)
	assert.Equal(t, outcome.MsgProgramNotAllowed, err.Error())

	// 加入 System Program 后放行
	p.Allowlist[solana.SystemProgramID] = struct{}{}
	assert.NoError(t, p.CheckInstructions(view))
}

func TestLoadAllowlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	content := "programs:\n  - " + solana.SystemProgramID.String() +
		"\n  - " + solana.TokenProgramID.String() + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	set, err := LoadAllowlist(path)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	_, ok := set[solana.SystemProgramID]
	assert.True(t, ok)

	_, err = LoadAllowlist(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// 编译期保证 PolicyFunc 满足 Policy
var _ Policy = PolicyFunc(func(*codec.TxView) error { return nil })

// 空实现用例：策略钩子可整体注入替换
func TestValidator_CustomPolicyHook(t *testing.T) {
	payer := solana.NewWallet()
	lc := &stubLedger{blockhashValid: true}

	rejectAll := PolicyFunc(func(*codec.TxView) error {
		return outcome.Reject(outcome.KindPolicy, "operator veto")
	})
	v := NewValidator(payer.PublicKey(), 2, false, rejectAll, lc)

	view := singleSignerView(t, payer.PublicKey(), solana.Hash{0x01})
	err := v.Validate(context.Background(), view)
	require.Error(t, err)
	assert.Equal(t, "operator veto", err.Error())
}
