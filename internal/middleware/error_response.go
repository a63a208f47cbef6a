package middleware

import (
	"encoding/json"
	"net/http"
)

// MsgInternalError はHTTP層で捕捉したエラーとpanicに返す固定メッセージ。
// 内部の詳細はログにのみ記録する。
const MsgInternalError = "Internal server error"

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{Success: false, Error: message})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, MsgInternalError)
}
