// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"time"
)

// エラーコード。上流APIクライアントと永続化層が返すタグ付き結果で使用する。
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeAPI        = "API_ERROR"
	ErrCodeUnknown    = "UNKNOWN_ERROR"
	ErrCodeNoResults  = "NO_RESULTS"
	ErrCodeDatabase   = "DATABASE_ERROR"
)

// エラーメッセージ定数。
const (
	MsgDatabaseError   = "Database operation failed"
	MsgValidationError = "Invalid input data"
	MsgNotFound        = "Resource not found"
	MsgUnknownError    = "An unknown error occurred"
)

// AppError はアプリケーション全体で共通のエラー形式を表す。
// Detailsはログ用であり、HTTPレスポンスにはそのまま出さない。
type AppError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は元になったエラーを返す。
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError は任意のコードでAppErrorを生成する。
func NewAppError(code, message string, details any) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, nil)
}

// NewAPIError は上流API呼び出しで発生したエラーをAppErrorに変換する。
// errがnilの場合はUNKNOWN_ERRORとして扱う。
func NewAPIError(err error) *AppError {
	if err == nil {
		return NewAppError(ErrCodeUnknown, MsgUnknownError, nil)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	e := NewAppError(ErrCodeAPI, err.Error(), nil)
	e.cause = err
	return e
}

// NewUnknownError はerror以外の値（panicなど）からUNKNOWN_ERRORを生成する。
func NewUnknownError(details any) *AppError {
	return NewAppError(ErrCodeUnknown, MsgUnknownError, details)
}

// NewNoResultsError は上流が成功したが結果が0件だった場合のエラーを生成する。
func NewNoResultsError(message string) *AppError {
	return NewAppError(ErrCodeNoResults, message, nil)
}

// NewDatabaseError はストア操作の失敗をDATABASE_ERRORに変換する。
func NewDatabaseError(err error) *AppError {
	var details any
	if err != nil {
		details = err.Error()
	}
	e := NewAppError(ErrCodeDatabase, MsgDatabaseError, details)
	e.cause = err
	return e
}

// HasCode はerrがAppErrorであり、指定コードを持つかを判定する。
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
