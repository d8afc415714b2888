package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/dto"
	availabilityapp "stayengine/internal/app/handlers/availability"
	"stayengine/internal/app/queries"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/shared/daterange"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	r, err := queryRange(c, "check_in", "check_out")
	if err != nil {
		writeError(c, err)
		return
	}
	guests, err := queryInt(c, "guests", 1)
	if err != nil {
		writeError(c, err)
		return
	}
	q := availabilityapp.CheckAvailabilityQuery{PropertyID: c.Param("id"), Range: r, Guests: guests}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, *dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Quote(c *gin.Context) {
	r, err := queryRange(c, "check_in", "check_out")
	if err != nil {
		writeError(c, err)
		return
	}
	q := availabilityapp.QuoteQuery{PropertyID: c.Param("id"), Range: r}
	result, err := queries.Ask[availabilityapp.QuoteQuery, *dto.Quote](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	year, month, err := queryMonth(c)
	if err != nil {
		writeError(c, err)
		return
	}
	q := availabilityapp.BuildMonthQuery{PropertyID: c.Param("id"), Year: year, Month: month}
	if p, ok := currentPrincipal(c); ok {
		q.Viewer = p.Actor()
	}
	result, err := queries.Ask[availabilityapp.BuildMonthQuery, *dto.CalendarMonth](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Stats(c *gin.Context) {
	host, ok := requireRole(c, domainbooking.RoleHost)
	if !ok {
		return
	}
	year, month, err := queryMonth(c)
	if err != nil {
		writeError(c, err)
		return
	}
	q := availabilityapp.MonthlyStatsQuery{PropertyID: c.Param("id"), HostID: host.ID, Year: year, Month: month}
	result, err := queries.Ask[availabilityapp.MonthlyStatsQuery, *dto.MonthlyStats](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type addBlockRequest struct {
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	Reason string `json:"reason"`
}

func (h AvailabilityHandler) AddBlock(c *gin.Context) {
	host, ok := requireRole(c, domainbooking.RoleHost)
	if !ok {
		return
	}
	var req addBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	r, err := daterange.Parse(req.Start, req.End)
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.AddBlockCommand{PropertyID: c.Param("id"), HostID: host.ID, Range: r, Reason: req.Reason}
	result, err := commands.Dispatch[availabilityapp.AddBlockCommand, *dto.Block](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) RemoveBlock(c *gin.Context) {
	host, ok := requireRole(c, domainbooking.RoleHost)
	if !ok {
		return
	}
	r, err := queryRange(c, "start", "end")
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := availabilityapp.RemoveBlockCommand{PropertyID: c.Param("id"), HostID: host.ID, Range: r}
	result, err := commands.Dispatch[availabilityapp.RemoveBlockCommand, *availabilityapp.RemoveBlockResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
