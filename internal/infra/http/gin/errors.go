package ginserver

import (
	"context"
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayengine/internal/app/dto"
	"stayengine/internal/app/middleware"
	"stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/pricing"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first sentinel matched by errors.Is wins.
var errorMappings = []errorMapping{
	{middleware.ErrValidation, http.StatusBadRequest, "invalid_request"},
	{daterange.ErrInvalidRange, http.StatusBadRequest, "invalid_request"},
	{daterange.ErrInvalidDay, http.StatusBadRequest, "invalid_request"},
	{availability.ErrInvalidMonth, http.StatusBadRequest, "invalid_request"},
	{domainbooking.ErrInvalidGuests, http.StatusBadRequest, "invalid_request"},
	{domainbooking.ErrGuestRequired, http.StatusBadRequest, "invalid_request"},
	{availability.ErrPastDate, http.StatusUnprocessableEntity, "past_date"},
	{availability.ErrStayLength, http.StatusUnprocessableEntity, "stay_length"},
	{availability.ErrAdvanceBooking, http.StatusUnprocessableEntity, "advance_booking"},
	{availability.ErrCapacity, http.StatusUnprocessableEntity, "capacity"},
	{pricing.ErrCurrencyUnset, http.StatusUnprocessableEntity, "pricing"},
	{money.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "pricing"},
	{availability.ErrDateConflict, http.StatusConflict, "date_conflict"},
	{availability.ErrDateBlocked, http.StatusConflict, "date_blocked"},
	{availability.ErrConflict, http.StatusConflict, "conflict"},
	{availability.ErrConcurrentUpdate, http.StatusConflict, "conflict"},
	{middleware.ErrIdempotencyKeyReused, http.StatusConflict, "idempotency_key_reused"},
	{domainbooking.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domainbooking.ErrNotFound, http.StatusNotFound, "not_found"},
	{listings.ErrPropertyNotFound, http.StatusNotFound, "not_found"},
	{availability.ErrBlockNotFound, http.StatusNotFound, "not_found"},
	{domainbooking.ErrForbidden, http.StatusForbidden, "forbidden"},
	{listings.ErrNotHost, http.StatusForbidden, "forbidden"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	{context.Canceled, http.StatusServiceUnavailable, "cancelled"},
}

func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.AbortWithStatusJSON(m.status, gin.H{"error": errorBody{Code: m.code, Message: err.Error(), Details: details(err)}})
			return
		}
	}
	_ = c.Error(err)
	abortError(c, http.StatusInternalServerError, "internal", "internal error")
}

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: message}})
}

// details exposes the context carried by typed errors.
func details(err error) map[string]any {
	var (
		conflict *availability.DateConflictError
		blocked  *availability.DateBlockedError
		stay     *availability.StayLengthError
		capacity *availability.CapacityError
		advance  *availability.AdvanceBookingError
		invalid  *middleware.ValidationError
	)
	switch {
	case errors.As(err, &conflict):
		return map[string]any{
			"conflicting_check_in":  dto.FormatDay(conflict.Conflicting.CheckIn),
			"conflicting_check_out": dto.FormatDay(conflict.Conflicting.CheckOut),
		}
	case errors.As(err, &blocked):
		return map[string]any{
			"blocked_start": dto.FormatDay(blocked.Blocked.CheckIn),
			"blocked_end":   dto.FormatDay(blocked.Blocked.CheckOut),
			"reason":        blocked.Reason,
		}
	case errors.As(err, &stay):
		return map[string]any{"nights": stay.Nights, "min_nights": stay.Min, "max_nights": stay.Max}
	case errors.As(err, &capacity):
		return map[string]any{"guests": capacity.Guests, "max_guests": capacity.MaxGuests}
	case errors.As(err, &advance):
		return map[string]any{"latest_check_in": dto.FormatDay(advance.Latest), "advance_booking_days": advance.Days}
	case errors.As(err, &invalid):
		return map[string]any{"fields": invalid.Fields}
	}
	return nil
}
