// internal/model/error.go
package model

import (
	"errors"
	"fmt"
)

// アプリケーション固有のエラー
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternalServer = errors.New("internal server error")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("resource conflict") // 楽観ロックの競合にも使う

	ErrUserNotFound       = errors.New("user not found")
	ErrGenerationFailed   = errors.New("content generation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCooldownActive     = errors.New("category already rewarded today")
	ErrInvalidPoints      = errors.New("points must be positive")
	ErrInvalidCategory    = errors.New("unknown category")
)

// AppError carries a client-facing code and message while keeping the
// underlying sentinel reachable through errors.Is.
type AppError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func NewAppError(code, message, field string, err error) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Detail はレスポンス用のエラー詳細を返します
func (e *AppError) Detail() ErrorDetail {
	return ErrorDetail{Code: e.Code, Message: e.Message, Field: e.Field}
}

// ErrorDetail is the body of an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// APIErrorResponse はAPIエラーレスポンスの構造体
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
