package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// Hash 表示 32 字节摘要（交易消息摘要 / blockhash 原始值）
type Hash [32]byte

func (h Hash) String() string {
	return base58.Encode(h[:])
}

func (h Hash) Equals(other Hash) bool {
	return h == other
}

// HashOf 计算任意字节串的 SHA-256 摘要，用作交易消息的判重 key
func HashOf(data []byte) Hash {
	return sha256.Sum256(data)
}

func HashFromBase58(s string) (Hash, error) {
	var h Hash
	data, err := base58.Decode(s)
	if err != nil {
		return h, err
	}
	if len(data) != 32 {
		return h, fmt.Errorf("invalid hash length")
	}
	copy(h[:], data)
	return h, nil
}
