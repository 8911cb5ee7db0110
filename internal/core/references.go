package core

import "errors"

// Reference code prefixes.
const (
	PrefixQuotation = "QUO"
	PrefixOrder     = "ORD"
	PrefixClaim     = "CLM"
)

const maxReferenceAttempts = 5

// ReferenceGenerator produces human-facing codes. Uniqueness is enforced by the
// stores, not by the generator.
type ReferenceGenerator interface {
	// Reference returns <PREFIX>-<YYYYMMDD>-<6 chars of [A-Z0-9]>.
	Reference(prefix string) string
	// PolicyNumber returns the 19 character policy number.
	PolicyNumber(partnerCode, companyCode string, b2b bool) string
	GatewayToken() string
}

// withReference calls fn with fresh reference codes until the store stops
// reporting a collision.
func withReference(gen ReferenceGenerator, prefix string, fn func(ref string) error) error {
	var err error
	for i := 0; i < maxReferenceAttempts; i++ {
		err = fn(gen.Reference(prefix))
		if !errors.Is(err, ErrDuplicateReference) {
			return err
		}
	}
	return err
}
