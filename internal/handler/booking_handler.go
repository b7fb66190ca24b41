package handler

import (
	"net/http"

	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/pkg/pagination"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService  service.BookingService
	dispatchService service.DispatchService
	tokens          *token.Manager
}

func NewBookingHandler(bookingService service.BookingService, dispatchService service.DispatchService, tokens *token.Manager) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, dispatchService: dispatchService, tokens: tokens}
}

func (h *BookingHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/bookings")
	group.Use(middleware.RequireRole(h.tokens))
	{
		group.POST("", middleware.RequireRole(h.tokens, model.RoleCustomer), h.CreateBooking)
		group.GET("", h.ListBookings)
		group.GET("/:id", h.GetBooking)
		group.POST("/:id/cancel", h.CancelBooking)
	}
}

// CreateBooking records a ride request and alerts dispatchers
// @Summary      Create booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateBookingRequest  true  "Pickup and dropoff"
// @Success      201      {object}  response.Response{data=service.BookingResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	booking, err := h.bookingService.CreateBooking(c.Request.Context(), who, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, booking))
}

// ListBookings returns the caller's bookings, or every booking for admins
// @Summary      List bookings
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Booking status"
// @Param        limit   query     int     false  "Page size (1-200, default 50)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  response.Response{data=response.List}
// @Router       /bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	page := pagination.Parse(c)
	items, total, err := h.bookingService.ListBookings(c.Request.Context(), who, c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total, page)
}

// @Summary      Get booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  response.Response{data=service.BookingResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookingService.GetBooking(c.Request.Context(), who, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, booking))
}

// CancelBooking cancels a booking and its trip, if any
// @Summary      Cancel booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true   "Booking ID"
// @Param        payload  body      service.CancelBookingRequest  false  "Reason"
// @Success      200      {object}  response.Response{data=service.BookingResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req service.CancelBookingRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	booking, err := h.dispatchService.CancelBooking(c.Request.Context(), who, id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, booking))
}
