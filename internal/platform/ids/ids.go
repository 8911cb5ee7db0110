// Package ids generates entity identifiers and the human-facing reference codes.
package ids

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength   = 6
	policyDigits      = 10

	DefaultCategoryCode = "TI"
	// Used when a package carries no usable partner or insurer code.
	DefaultPartnerCode = "DP"
	DefaultInsurerCode = "IN"
)

// New returns a random UUID string.
func New() string {
	return uuid.NewString()
}

// Generator builds reference codes, policy numbers and gateway tokens.
type Generator struct {
	categoryCode string
	clock        func() time.Time
}

func NewGenerator(categoryCode string) *Generator {
	return &Generator{categoryCode: sanitizeCode(categoryCode, DefaultCategoryCode), clock: time.Now}
}

// WithClock replaces the time source, mainly for tests.
func (g *Generator) WithClock(clock func() time.Time) *Generator {
	g.clock = clock
	return g
}

// Reference returns <PREFIX>-<YYYYMMDD>-<6 chars of [A-Z0-9]>.
func (g *Generator) Reference(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 16)
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(g.clock().Format("20060102"))
	b.WriteByte('-')
	b.WriteString(randomFrom(referenceAlphabet, referenceLength))
	return b.String()
}

// PolicyNumber returns partner(2) company(2) category(2) channel(1) year(2) and
// ten random digits.
func (g *Generator) PolicyNumber(partnerCode, companyCode string, b2b bool) string {
	channel := "0"
	if b2b {
		channel = "1"
	}
	return sanitizeCode(partnerCode, DefaultPartnerCode) +
		sanitizeCode(companyCode, DefaultInsurerCode) +
		g.categoryCode +
		channel +
		g.clock().Format("06") +
		randomFrom("0123456789", policyDigits)
}

func (g *Generator) GatewayToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// sanitizeCode upper-cases a two letter code and falls back to def when the code
// is not exactly two letters A-Z.
func sanitizeCode(code, def string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return def
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return def
		}
	}
	return code
}

func randomFrom(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("ids: crypto/rand failed: " + err.Error())
		}
		out[i] = alphabet[k.Int64()]
	}
	return string(out)
}
