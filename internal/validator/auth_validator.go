package validator

import (
	"errors"
	"net/mail"
	"strings"
)

// パスワード最低文字数
const MinPasswordLength = 6

var (
	// 必須項目が空
	ErrInvalidInput = errors.New("invalid input")

	// email形式
	ErrInvalidEmailFormat = errors.New("invalid email format")

	// パスワードが短い
	ErrPasswordTooShort = errors.New("password too short")
)

type AuthValidator struct{}

func NewAuthValidator() *AuthValidator {
	return &AuthValidator{}
}

// サインアップの入力を検証
func (v *AuthValidator) ValidateRegister(email string, password string) error {
	if err := v.ValidateLogin(email, password); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ログインの入力を検証
func (v *AuthValidator) ValidateLogin(email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return ErrInvalidInput
	}

	if !isEmailLike(email) {
		return ErrInvalidEmailFormat
	}
	return nil
}

// IsInputError はバリデーション由来のエラーか（handlerで400にする）
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidEmailFormat) ||
		errors.Is(err, ErrPasswordTooShort)
}

// 名前つきアドレス（"A <a@b.c>"）は受け付けない
func isEmailLike(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}
