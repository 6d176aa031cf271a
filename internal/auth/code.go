package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CodeTTL is how long a verification code stays valid.
const CodeTTL = 10 * time.Minute

// CodeGenerator produces verification codes.
type CodeGenerator func() (string, error)

// RandomCode returns a uniformly random six digit code in [100000, 999999].
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
