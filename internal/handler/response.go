// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/podsearch/internal/middleware"
	"github.com/hitoshi/podsearch/internal/model"
)

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError は{success:false, error}形式のエラーレスポンスを書き込む。
func writeError(w http.ResponseWriter, statusCode int, message string) {
	middleware.WriteErrorResponse(w, statusCode, message)
}

// writeInternalError はエラーをログに記録し、固定メッセージの500を返す。
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// handleServiceError はサービス層のAppErrorをHTTPステータスに変換して書き込む。
// AppError以外とDATABASE_ERROR、UNKNOWN_ERRORは内部エラーとして扱う。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *model.AppError
	if !errors.As(err, &appErr) {
		writeInternalError(w, r, err)
		return
	}

	switch appErr.Code {
	case model.ErrCodeValidation:
		writeError(w, http.StatusBadRequest, appErr.Message)
	case model.ErrCodeNoResults:
		writeError(w, http.StatusNotFound, appErr.Message)
	case model.ErrCodeAPI:
		slog.Warn("upstream request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", appErr.Message),
		)
		writeError(w, http.StatusBadGateway, "Upstream request failed")
	default:
		writeInternalError(w, r, err)
	}
}
