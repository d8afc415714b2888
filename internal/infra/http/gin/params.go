package ginserver

import (
	"fmt"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"stayengine/internal/app/middleware"
	"stayengine/internal/domain/shared/daterange"
)

func queryRange(c *gin.Context, inKey, outKey string) (daterange.DateRange, error) {
	in, out := c.Query(inKey), c.Query(outKey)
	if in == "" || out == "" {
		return daterange.DateRange{}, &middleware.ValidationError{Fields: []string{inKey, outKey}}
	}
	return daterange.Parse(in, out)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", middleware.ErrValidation, key)
	}
	return v, nil
}

func queryMonth(c *gin.Context) (int, int, error) {
	year, err := queryInt(c, "year", 0)
	if err != nil {
		return 0, 0, err
	}
	month, err := queryInt(c, "month", 0)
	if err != nil {
		return 0, 0, err
	}
	if year == 0 || month == 0 {
		return 0, 0, &middleware.ValidationError{Fields: []string{"year", "month"}}
	}
	return year, month, nil
}
