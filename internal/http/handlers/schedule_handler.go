package handlers

import (
	"net/http"
	"strconv"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/gin-gonic/gin"
)

// AvailableSlots: GET /api/available-slots?date=YYYY-MM-DD&package_id=N
func (h Handler) AvailableSlots(c *gin.Context) {
	if c.Query("date") == "" || c.Query("package_id") == "" {
		respondError(c, http.StatusBadRequest, "missing_parameters", "date and package_id are required", nil)
		return
	}
	day, ok := queryDate(c, "date", h.loc())
	if !ok {
		return
	}
	pkgID, err := strconv.ParseInt(c.Query("package_id"), 10, 64)
	if err != nil || pkgID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_package_id", "package_id must be a positive integer", nil)
		return
	}

	slots, err := h.Slots.AvailableSlots(c.Request.Context(), day, pkgID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, utils.FormatClock(s, h.loc()))
	}
	c.JSON(http.StatusOK, gin.H{
		"date":       utils.FormatDate(day, h.loc()),
		"package_id": pkgID,
		"slots":      out,
	})
}

// Calendar: GET /api/calendar?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD
func (h Handler) Calendar(c *gin.Context) {
	start, ok := queryDate(c, "start_date", h.loc())
	if !ok {
		return
	}
	end := start
	if c.Query("end_date") != "" {
		if end, ok = queryDate(c, "end_date", h.loc()); !ok {
			return
		}
	}
	bookings, err := h.Bookings.Calendar(c.Request.Context(), domain.DateRange{Start: start, End: end})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start_date": utils.FormatDate(start, h.loc()),
		"end_date":   utils.FormatDate(end, h.loc()),
		"bookings":   bookings,
	})
}
