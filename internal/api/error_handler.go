package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error       string   `json:"error"`
	Code        int      `json:"code,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	SeatIDs     []string `json:"seat_ids,omitempty"`
	SeatNumbers []string `json:"seat_numbers,omitempty"`
}

// HTTPStatus はエラーに対応する HTTP ステータスを返す
func HTTPStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	switch seat.KindOf(err) {
	case seat.ErrNotFound:
		return http.StatusNotFound
	case seat.ErrValidation:
		return http.StatusBadRequest
	case seat.ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := HTTPStatus(err)
	resp := ErrorResponse{Error: "内部サーバーエラー", Code: code}

	var (
		he *echo.HTTPError
		se *seat.Error
	)
	switch {
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			resp.Error = m
		} else {
			resp.Error = http.StatusText(code)
		}
	case errors.As(err, &se):
		resp.Kind = seat.KindOf(se).Error()
		resp.SeatIDs = se.SeatIDs
		resp.SeatNumbers = se.SeatNumbers
		// 内部エラーの詳細はレスポンスに含めない
		if code < 500 {
			resp.Error = se.Error()
		} else {
			resp.Error = se.Message
		}
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.FromContext(c.Request().Context()).Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
