package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// 口令长度限制；bcrypt 只使用前 72 字节。
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// ErrPasswordLength 口令长度不在 [MinPasswordLength, MaxPasswordLength] 内。
var ErrPasswordLength = errors.New("password length out of range")

// ValidatePassword 检查口令长度。
func ValidatePassword(password string) error {
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: need %d-%d bytes", ErrPasswordLength, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// HashPassword 使用 bcrypt 生成密码哈希。
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash 校验密码是否匹配哈希。
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
