package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// parseTimeRange reads optional startTime/endTime query parameters as
// RFC3339. Malformed or reversed ranges are rejected before any vendor
// call is issued.
func parseTimeRange(c *gin.Context) (from, to time.Time, err error) {
	if raw := c.Query("startTime"); raw != "" {
		from, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid startTime %q: expected RFC3339", raw)
		}
	}
	if raw := c.Query("endTime"); raw != "" {
		to, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid endTime %q: expected RFC3339", raw)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("endTime precedes startTime")
	}
	return from, to, nil
}

// parseBool reads an optional boolean query parameter, returning nil when
// absent.
func parseBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	switch raw {
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("invalid %s %q: expected true or false", name, raw)
}
