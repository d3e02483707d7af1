package sponsor

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-relay-sol/internal/dedup"
	"gas-relay-sol/internal/ledger"
	"gas-relay-sol/internal/logic/admission"
	"gas-relay-sol/internal/logic/outcome"
)

// stubLedger 记录各 RPC 调用次数，满足 ledger.Client
type stubLedger struct {
	blockhashValid bool
	simulateErr    error
	submitSig      solana.Signature
	submitErr      error
	confirmErr     error

	blockhashCalls int
	simulateCalls  int
	submitCalls    int
	confirmCalls   int
}

func (s *stubLedger) IsBlockhashValid(_ context.Context, _ solana.Hash) (bool, error) {
	s.blockhashCalls++
	return s.blockhashValid, nil
}

func (s *stubLedger) Simulate(_ context.Context, _ *solana.Transaction) error {
	s.simulateCalls++
	return s.simulateErr
}

func (s *stubLedger) Submit(_ context.Context, _ *solana.Transaction) (solana.Signature, error) {
	s.submitCalls++
	return s.submitSig, s.submitErr
}

func (s *stubLedger) Confirm(_ context.Context, _ solana.Signature) error {
	s.confirmCalls++
	return s.confirmErr
}

var _ ledger.Client = (*stubLedger)(nil)

// 构造 payer 单签名交易的 base64 wire 形式
func buildSingleSignerB64(t *testing.T, payer solana.PublicKey) string {
	ix := solana.NewInstruction(solana.MemoProgramID, solana.AccountMetaSlice{}, []byte("m"))
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{0x05},
		solana.TransactionPayer(payer))
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

// 构造双签名交易（payer 代付，user 转账，次级槽为空）
func buildTwoSignerB64(t *testing.T, payer, user solana.PublicKey) string {
	ix := system.NewTransferInstruction(1_000, user, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{0x06},
		solana.TransactionPayer(payer))
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func newTestPipeline(payer *solana.Wallet, lc *stubLedger, mode ReturnMode, scorer Scorer, minScore float64) *Pipeline {
	signer := NewCoSigner(payer.PrivateKey)
	policy := &admission.DefaultPolicy{Payer: payer.PublicKey()}
	validator := admission.NewValidator(payer.PublicKey(), 2, false, policy, lc)
	dispatcher := NewDispatcher(mode, minScore, scorer, lc, time.Second)
	return NewPipeline(dedup.NewMemoryStore(time.Second), validator, signer, dispatcher, lc, nil)
}

func TestSponsor_SingleSigner_SubmitAndConfirm(t *testing.T) {
	payer := solana.NewWallet()
	lc := &stubLedger{blockhashValid: true, submitSig: solana.Signature{0xAA}}
	p := newTestPipeline(payer, lc, ReturnNone, nil, 0)

	res := p.Sponsor(context.Background(), buildSingleSignerB64(t, payer.PublicKey()), "")

	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, solana.Signature{0xAA}.String(), res.Signature)
	assert.Empty(t, res.Message)
	assert.Equal(t, 1, lc.simulateCalls)
	assert.Equal(t, 1, lc.submitCalls)
	assert.Equal(t, 1, lc.confirmCalls)
}

func TestSponsor_FeePayerMismatch_NoSideEffects(t *testing.T) {
	payer := solana.NewWallet()
	stranger := solana.NewWallet()
	lc := &stubLedger{blockhashValid: true}
	p := newTestPipeline(payer, lc, ReturnNone, nil, 0)

	res := p.Sponsor(context.Background(), buildSingleSignerB64(t, stranger.PublicKey()), "")

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, outcome.MsgInvalidFeePayer, res.Message)
	// 拒绝发生在任何签名/模拟/提交之前
	assert.Equal(t, 0, lc.simulateCalls)
	assert.Equal(t, 0, lc.submitCalls)
}

func TestSponsor_DuplicateWithinTTL(t *testing.T) {
	payer := solana.NewWallet()
	lc := &stubLedger{blockhashValid: true, submitSig: solana.Signature{0x01}}
	p := newTestPipeline(payer, lc, ReturnNone, nil, 0)

	raw := buildSingleSignerB64(t, payer.PublicKey())

	res := p.Sponsor(context.Background(), raw, "")
	require.Equal(t, "ok", res.Status)

	// TTL 窗口内重放同一字节串：重复拒绝，不发生第二次提交
	res = p.Sponsor(context.Background(), raw, "")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, outcome.MsgDuplicateTransaction, res.Message)
	assert.Equal(t, 1, lc.submitCalls)
}

func TestSponsor_DecodeErrorDoesNotLock(t *testing.T) {
	payer := solana.NewWallet()
	lc := &stubLedger{blockhashValid: true}
	p := newTestPipeline(payer, lc, ReturnAllowAll, nil, 0)

	res := p.Sponsor(context.Background(), "@@@", "")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, outcome.MsgInvalidTransaction, res.Message)
	assert.Equal(t, 0, lc.simulateCalls)
}

func TestSponsor_SimulationFailure_NoSubmission(t *testing.T) {
	payer := solana.NewWallet()
	lc := &stubLedger{
		blockhashValid: true,
		simulateErr:    &ledger.SimulateError{Detail: "InstructionError(0, Custom(1))"},
	}
	p := newTestPipeline(payer, lc, ReturnNone, nil, 0)

	res := p.Sponsor(context.Background(), buildSingleSignerB64(t, payer.PublicKey()), "")

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "simulation failed: InstructionError(0, Custom(1))", res.Message)
	assert.Equal(t, 0, lc.submitCalls)
}

func TestSponsor_SubmissionFailure(t *testing.T) {
	payer := solana.NewWallet()
	lc := &stubLedger{blockhashValid: true, submitErr: assert.AnError}
	p := newTestPipeline(payer, lc, ReturnNone, nil, 0)

	res := p.Sponsor(context.Background(), buildSingleSignerB64(t, payer.PublicKey()), "")

	assert.Equal(t, "error", res.Status)
	assert.Equal(t, outcome.MsgSubmissionFailed, res.Message)
	assert.Equal(t, 0, lc.confirmCalls)
}

func TestSponsor_AllowAll_ReturnsSignedBytes(t *testing.T) {
	payer := solana.NewWallet()
	user := solana.NewWallet()
	lc := &stubLedger{blockhashValid: true}
	p := newTestPipeline(payer, lc, ReturnAllowAll, nil, 0)

	res := p.Sponsor(context.Background(), buildTwoSignerB64(t, payer.PublicKey(), user.PublicKey()), "")

	require.Equal(t, "ok", res.Status)
	assert.NotEmpty(t, res.Signature)
	require.NotEmpty(t, res.Transaction)
	// 不代为提交
	assert.Equal(t, 0, lc.submitCalls)

	// 返回的字节可重新解析，且 fee payer 槽已填充
	raw, err := base64.StdEncoding.DecodeString(res.Transaction)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestSponsor_ScoredChallenge(t *testing.T) {
	payer := solana.NewWallet()

	lowScore := ScorerFunc(func(context.Context, string) (float64, error) { return 0.2, nil })
	highScore := ScorerFunc(func(context.Context, string) (float64, error) { return 0.95, nil })

	// 得分不足
	lc := &stubLedger{blockhashValid: true}
	p := newTestPipeline(payer, lc, ReturnScoredChallenge, lowScore, 0.8)
	res := p.Sponsor(context.Background(), buildSingleSignerB64(t, payer.PublicKey()), "token")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, outcome.MsgAntiSpamCheckFailed, res.Message)

	// 缺少 challenge token
	lc = &stubLedger{blockhashValid: true}
	p = newTestPipeline(payer, lc, ReturnScoredChallenge, highScore, 0.8)
	res = p.Sponsor(context.Background(), buildSingleSignerB64(t, payer.PublicKey()), "")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, outcome.MsgAntiSpamCheckFailed, res.Message)

	// 得分达标：行为等同 allowAll
	lc = &stubLedger{blockhashValid: true}
	p = newTestPipeline(payer, lc, ReturnScoredChallenge, highScore, 0.8)
	res = p.Sponsor(context.Background(), buildSingleSignerB64(t, payer.PublicKey()), "token")
	require.Equal(t, "ok", res.Status)
	assert.NotEmpty(t, res.Transaction)
	assert.Equal(t, 0, lc.submitCalls)
}

func TestParseReturnMode(t *testing.T) {
	m, err := ParseReturnMode("")
	require.NoError(t, err)
	assert.Equal(t, ReturnNone, m)

	m, err = ParseReturnMode("allowAll")
	require.NoError(t, err)
	assert.Equal(t, ReturnAllowAll, m)

	m, err = ParseReturnMode("scoredChallenge")
	require.NoError(t, err)
	assert.Equal(t, ReturnScoredChallenge, m)

	_, err = ParseReturnMode("whatever")
	assert.Error(t, err)
}
