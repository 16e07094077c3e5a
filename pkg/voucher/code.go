package voucher

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// codeAlphabet drops characters that are easy to misread (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	codeGroups    = 3
	codeGroupSize = 4
)

// CodeGenerator returns a new candidate redemption code.
type CodeGenerator func() (string, error)

// GenerateCode produces codes shaped like "ABCD-EFGH-JKMN".
func GenerateCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for g := 0; g < codeGroups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < codeGroupSize; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("failed to generate voucher code: %w", err)
			}
			b.WriteByte(codeAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// NormalizeCode accepts codes typed in lower case, with stray spaces or
// without the dashes, and returns them in the stored "ABCD-EFGH-JKMN" form.
func NormalizeCode(code string) string {
	compact := strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.ToUpper(code))
	if len(compact) != codeGroups*codeGroupSize {
		return compact
	}

	var b strings.Builder
	for g := 0; g < codeGroups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		b.WriteString(compact[g*codeGroupSize : (g+1)*codeGroupSize])
	}
	return b.String()
}
