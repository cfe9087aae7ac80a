package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/gin-gonic/gin"
)

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "invalid_body", "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", "invalid payload", err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_"+name, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func queryDate(c *gin.Context, name string, loc *time.Location) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		respondError(c, http.StatusBadRequest, "missing_parameters", name+" is required", nil)
		return time.Time{}, false
	}
	d, err := utils.ParseDate(raw, loc)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_date", name+" must be YYYY-MM-DD", nil)
		return time.Time{}, false
	}
	return d, true
}
