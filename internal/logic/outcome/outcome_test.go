package outcome

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError_Reject(t *testing.T) {
	err := Reject(KindPolicy, MsgInvalidFeePayer)
	res := FromError(err)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, MsgInvalidFeePayer, res.Message)
	assert.Empty(t, res.Signature)
}

func TestFromError_WrappedReject(t *testing.T) {
	err := fmt.Errorf("stage failed: %w", Reject(KindDuplicate, MsgDuplicateTransaction))
	res := FromError(err)
	assert.Equal(t, MsgDuplicateTransaction, res.Message)
	assert.Equal(t, KindDuplicate, KindOf(err))
}

// 未分类错误不向客户端泄露内部细节
func TestFromError_OpaqueInternal(t *testing.T) {
	err := errors.New("ed25519: bad private key size")
	res := FromError(err)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, MsgInternalError, res.Message)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestOk(t *testing.T) {
	res := Ok("sig123", "dHg=")
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "sig123", res.Signature)
	assert.Equal(t, "dHg=", res.Transaction)
	assert.Empty(t, res.Message)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "policy", KindPolicy.String())
	assert.Equal(t, "duplicate", KindDuplicate.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
