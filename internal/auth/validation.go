// Package auth は認証フローのオーケストレーションとセッション管理を提供します。
package auth

import "regexp"

// FieldError はどの入力がなぜ拒否されたかを示すペアです。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+$`)

const minPasswordLength = 6

// isEmail はメールアドレスの形式を検査します。
func isEmail(email string) bool {
	return email != "" && emailRegex.MatchString(email)
}

// validateRegister は登録入力を検証します。問題がなければ nil を返します。
func validateRegister(name, email, password string) []FieldError {
	var errs []FieldError

	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "Name can not be blank"})
	}

	if !isEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid Email"})
	}

	if len(password) < minPasswordLength {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be atleast 6 characters long"})
	}

	return errs
}

// validateLogin はログイン入力を検証します。
func validateLogin(email, password string) []FieldError {
	var errs []FieldError

	if !isEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid Email"})
	}

	if password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Password can not blank"})
	}

	return errs
}

// validateForgotPassword はパスワード再設定依頼の入力を検証します。
func validateForgotPassword(email string) []FieldError {
	if !isEmail(email) {
		return []FieldError{{Field: "email", Message: "Invalid Email"}}
	}
	return nil
}

// validateChangePassword は新しいパスワードを検証します。
func validateChangePassword(password string) []FieldError {
	if len(password) < minPasswordLength {
		return []FieldError{{Field: "password", Message: "Password must be atleast 6 characters long"}}
	}
	return nil
}
