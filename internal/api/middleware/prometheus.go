package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/api"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/pkg/metrics"
)

// PrometheusMiddleware はHTTPメトリクスを収集するミドルウェア
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := c.Response().Status
			if err != nil {
				// エラーハンドラーが書き込む前なのでエラーからステータスを求める
				status = api.HTTPStatus(err)
			}

			// ラベルにはルートのパターンを使う。未登録のパスは unmatched にまとめる
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(duration)

			return err
		}
	}
}
