package handler

import "github.com/labstack/echo/v4"

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health      *HealthHandler
	Seat        *SeatHandler
	Reservation *ReservationHandler
}

// RegisterRoutes は API のルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	seats := v1.Group("/seats")
	seats.GET("", h.Seat.List)
	seats.POST("", h.Seat.Create)
	seats.POST("/bulk", h.Seat.CreateBulk)
	seats.GET("/availability", h.Seat.Availability)
	seats.GET("/order/:order_id", h.Seat.GetByOrder)
	seats.GET("/:id", h.Seat.GetByID)

	seats.POST("/reserve", h.Reservation.Reserve)
	seats.POST("/allocate", h.Reservation.Allocate)
	seats.POST("/release", h.Reservation.Release)
	seats.PATCH("/:id/block", h.Reservation.Block)
	seats.PATCH("/:id/unblock", h.Reservation.Unblock)
}
