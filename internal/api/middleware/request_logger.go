package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/api"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/logger"
)

// HeaderUserID は仮押さえするユーザーを示すヘッダー
const HeaderUserID = "X-User-ID"

// RequestLogger はリクエストの構造化ログを出力するミドルウェア
// リクエストIDを付けたロガーをコンテキストに格納し、サービス層のログと紐付ける
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			// リクエストIDを取得（RequestID ミドルウェアがレスポンスヘッダーに設定する）
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = res.Header().Get(echo.HeaderXRequestID)
			}

			reqLog := logger.With(zap.String("request_id", requestID))
			if userID := req.Header.Get(HeaderUserID); userID != "" {
				reqLog = reqLog.With(zap.String("user_id", userID))
			}
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), reqLog)))

			// リクエスト処理
			err := next(c)

			status := res.Status
			if err != nil {
				status = api.HTTPStatus(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("query", req.URL.RawQuery),
				zap.Int("status", status),
				zap.Int64("size", res.Size),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
				zap.String("user_agent", req.UserAgent()),
			}

			switch {
			case status >= 500:
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				reqLog.Error("server error", fields...)
			case status >= 400:
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				reqLog.Warn("client error", fields...)
			default:
				reqLog.Info("request completed", fields...)
			}

			return err
		}
	}
}
