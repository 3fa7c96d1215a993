package security

import "golang.org/x/crypto/bcrypt"

// BcryptHasher hashes principal passwords. The cost comes from config so a
// deployment can trade login latency against brute-force work factor.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher, falling back to the library default when
// the configured cost is outside the supported range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
