package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// CodeGenerator produces verification codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCodeGenerator draws six-digit codes uniformly from [0, 999999].
type RandomCodeGenerator struct {
	rand io.Reader
}

func NewCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{rand: rand.Reader}
}

func (g *RandomCodeGenerator) Generate() (string, error) {
	n, err := rand.Int(g.rand, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
