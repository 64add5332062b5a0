package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/application"
	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

type SeatHandler struct {
	service SeatServiceInterface
}

func NewSeatHandler(s SeatServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

type CreateSeatRequest struct {
	EventID    string          `json:"event_id" validate:"required"`
	SeatNumber string          `json:"seat_number" validate:"required"`
	Row        string          `json:"row"`
	Section    string          `json:"section"`
	Category   string          `json:"category" validate:"omitempty,oneof=regular premium vip"`
	Price      decimal.Decimal `json:"price"`
}

type CreateBulkSeatsRequest struct {
	EventID  string          `json:"event_id" validate:"required"`
	Section  string          `json:"section"`
	Row      string          `json:"row"`
	Prefix   string          `json:"prefix" validate:"required"`
	Count    int             `json:"count" validate:"required,min=1,max=10000"`
	Category string          `json:"category" validate:"omitempty,oneof=regular premium vip"`
	Price    decimal.Decimal `json:"price"`
}

type SeatResponse struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	SeatNumber string          `json:"seat_number"`
	Row        string          `json:"row"`
	Section    string          `json:"section"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	Status     string          `json:"status"`
	HolderID   *string         `json:"holder_id,omitempty"`
	OrderID    *string         `json:"order_id,omitempty"`
	ReservedAt *time.Time      `json:"reserved_at,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toSeatResponse(s *seat.Seat) SeatResponse {
	return SeatResponse{
		ID: s.ID, EventID: s.EventID, SeatNumber: s.SeatNumber,
		Row: s.Row, Section: s.Section, Category: string(s.Category),
		Price: s.Price, Status: string(s.Status()),
		HolderID: s.HolderID(), OrderID: s.OrderID(),
		ReservedAt: s.ReservedAt(), ExpiresAt: s.ExpiresAt(),
		Version: s.Version, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func toSeatResponses(seats []*seat.Seat) []SeatResponse {
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return resp
}

// List godoc
// @Summary イベントの座席一覧を取得
// @Tags seats
// @Produce json
// @Param event_id query string true "イベントID"
// @Param status query string false "available / reserved / allocated / blocked"
// @Success 200 {array} SeatResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /seats [get]
func (h *SeatHandler) List(c echo.Context) error {
	seats, err := h.service.GetSeatsByEvent(c.Request().Context(), c.QueryParam("event_id"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponses(seats))
}

// Availability godoc
// @Summary イベントの空席集計を取得
// @Tags seats
// @Produce json
// @Param event_id query string true "イベントID"
// @Success 200 {object} seat.Availability
// @Router /seats/availability [get]
func (h *SeatHandler) Availability(c echo.Context) error {
	a, err := h.service.GetAvailability(c.Request().Context(), c.QueryParam("event_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// GetByID godoc
// @Summary 座席を取得
// @Tags seats
// @Produce json
// @Param id path string true "座席ID"
// @Success 200 {object} SeatResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /seats/{id} [get]
func (h *SeatHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetSeat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponse(s))
}

// GetByOrder godoc
// @Summary 注文に割り当てられた座席を取得
// @Tags seats
// @Produce json
// @Param order_id path string true "注文ID"
// @Success 200 {array} SeatResponse
// @Router /seats/order/{order_id} [get]
func (h *SeatHandler) GetByOrder(c echo.Context) error {
	seats, err := h.service.GetSeatsByOrder(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponses(seats))
}

// Create godoc
// @Summary 座席を作成
// @Tags seats
// @Accept json
// @Produce json
// @Param request body CreateSeatRequest true "座席情報"
// @Success 201 {object} SeatResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "座席番号が重複"
// @Router /seats [post]
func (h *SeatHandler) Create(c echo.Context) error {
	var req CreateSeatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateSeat(c.Request().Context(), application.CreateSeatInput{
		EventID: req.EventID, SeatNumber: req.SeatNumber, Row: req.Row, Section: req.Section,
		Category: seat.Category(req.Category), Price: req.Price,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSeatResponse(s))
}

// CreateBulk godoc
// @Summary 座席を一括作成
// @Tags seats
// @Accept json
// @Produce json
// @Param request body CreateBulkSeatsRequest true "座席情報"
// @Success 201 {array} SeatResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /seats/bulk [post]
func (h *SeatHandler) CreateBulk(c echo.Context) error {
	var req CreateBulkSeatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats, err := h.service.CreateBulkSeats(c.Request().Context(), application.CreateBulkSeatsInput{
		EventID: req.EventID, Section: req.Section, Row: req.Row, Prefix: req.Prefix,
		Count: req.Count, Category: seat.Category(req.Category), Price: req.Price,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSeatResponses(seats))
}
