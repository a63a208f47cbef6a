package model

// Result は例外を投げない操作の統一結果形式。
// 呼び出し側はSuccessを確認してからDataを参照する。
type Result[T any] struct {
	Success bool
	Data    T
	Error   *AppError
}

// Ok は成功結果を生成する。
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail は失敗結果を生成する。
func Fail[T any](err *AppError) Result[T] {
	return Result[T]{Success: false, Error: err}
}
