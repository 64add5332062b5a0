package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/api/middleware"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/application"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/reservation"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type ReserveRequest struct {
	EventID string   `json:"event_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,dive,required" example:"seat-A1,seat-A2"`
}

type AllocateRequest struct {
	SeatIDs  []string `json:"seat_ids" validate:"required,min=1,dive,required"`
	OrderID  string   `json:"order_id" validate:"required" example:"order-2025-001"`
	HolderID string   `json:"holder_id,omitempty"`
}

type ReleaseRequest struct {
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,dive,required"`
	Force   bool     `json:"force,omitempty"`
}

type ReservationResponse struct {
	ID         string          `json:"reservation_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	EventID    string          `json:"event_id"`
	HolderID   string          `json:"holder_id" example:"user-123"`
	Seats      []SeatResponse  `json:"seats"`
	TotalPrice decimal.Decimal `json:"total_price" example:"150.00"`
	ExpiresAt  time.Time       `json:"expires_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, EventID: r.EventID, HolderID: r.HolderID,
		Seats: toSeatResponses(r.Seats), TotalPrice: r.TotalPrice,
		ExpiresAt: r.ExpiresAt, CreatedAt: r.CreatedAt,
	}
}

// Reserve godoc
// @Summary 座席を仮押さえ
// @Description 指定座席を全て仮押さえします（15分間有効）。1席でも予約できなければ何も変更しません
// @Tags seats
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body ReserveRequest true "仮押さえ情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "座席が既に予約済み"
// @Router /seats/reserve [post]
func (h *ReservationHandler) Reserve(c echo.Context) error {
	userID := c.Request().Header.Get(middleware.HeaderUserID)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	var req ReserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	r, err := h.service.Reserve(c.Request().Context(), application.ReserveInput{
		EventID: req.EventID, HolderID: userID, SeatIDs: req.SeatIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// Allocate godoc
// @Summary 仮押さえ中の座席を注文に割り当て
// @Tags seats
// @Accept json
// @Produce json
// @Param request body AllocateRequest true "割り当て情報"
// @Success 200 {array} SeatResponse
// @Failure 409 {object} api.ErrorResponse "仮押さえされていない座席を含む"
// @Router /seats/allocate [post]
func (h *ReservationHandler) Allocate(c echo.Context) error {
	var req AllocateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats, err := h.service.Allocate(c.Request().Context(), application.AllocateInput{
		SeatIDs: req.SeatIDs, OrderID: req.OrderID, HolderID: req.HolderID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponses(seats))
}

// Release godoc
// @Summary 座席を解放
// @Tags seats
// @Accept json
// @Produce json
// @Param request body ReleaseRequest true "解放する座席"
// @Success 200 {array} SeatResponse
// @Router /seats/release [post]
func (h *ReservationHandler) Release(c echo.Context) error {
	var req ReleaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats, err := h.service.Release(c.Request().Context(), application.ReleaseInput{
		SeatIDs: req.SeatIDs, Force: req.Force,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponses(seats))
}

// Block godoc
// @Summary 座席を販売停止にする
// @Tags seats
// @Produce json
// @Param id path string true "座席ID"
// @Success 200 {object} SeatResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /seats/{id}/block [patch]
func (h *ReservationHandler) Block(c echo.Context) error {
	seats, err := h.service.Block(c.Request().Context(), []string{c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponse(seats[0]))
}

// Unblock godoc
// @Summary 販売停止を解除する
// @Tags seats
// @Produce json
// @Param id path string true "座席ID"
// @Success 200 {object} SeatResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /seats/{id}/unblock [patch]
func (h *ReservationHandler) Unblock(c echo.Context) error {
	seats, err := h.service.Unblock(c.Request().Context(), []string{c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponse(seats[0]))
}
