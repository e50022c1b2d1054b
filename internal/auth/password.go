package auth

import "golang.org/x/crypto/bcrypt"

// BcryptHasher 密码哈希
type BcryptHasher struct {
	Cost int
}

func (h *BcryptHasher) cost() int {
	if h == nil || h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash 生成密码哈希
func (h *BcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	return string(bytes), err
}

// Compare 校验密码，匹配返回 true
func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
