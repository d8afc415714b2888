package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/dto"
	bookingapp "stayengine/internal/app/handlers/booking"
	"stayengine/internal/app/queries"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/shared/daterange"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Guests     int    `json:"guests"`
}

func (h BookingHandler) Create(c *gin.Context) {
	guest, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	r, err := daterange.Parse(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		PropertyID: req.PropertyID,
		GuestID:    guest.ID,
		Range:      r,
		Guests:     req.Guests,
		ClientKey:  c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{BookingID: c.Param("id"), Actor: p.Actor()}
	result, err := queries.Ask[bookingapp.GetBookingQuery, *dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	host, ok := requireRole(c, domainbooking.RoleHost)
	if !ok {
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{BookingID: c.Param("id"), Actor: host.Actor()}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), Actor: p.Actor(), Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
