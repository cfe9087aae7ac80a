package handlers

import (
	"net/http"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/gin-gonic/gin"
)

func (h Handler) ListTechnicians(c *gin.Context) {
	techs, err := h.Technicians.ListActive(c.Request.Context(), c.Query("category"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": techs})
}

// TechnicianJobs lists a technician's bookings for ?date= (default today).
func (h Handler) TechnicianJobs(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	day := time.Now().In(h.loc())
	if c.Query("date") != "" {
		if day, ok = queryDate(c, "date", h.loc()); !ok {
			return
		}
	}
	jobs, err := h.Bookings.TechnicianJobs(c.Request.Context(), id, day)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"technician_id": id,
		"date":          utils.FormatDate(day, h.loc()),
		"jobs":          jobs,
	})
}

// TechnicianPayroll returns the technician's earnings for ?date=.
func (h Handler) TechnicianPayroll(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	day, ok := queryDate(c, "date", h.loc())
	if !ok {
		return
	}
	entry, err := h.Payroll.GetEntry(c.Request.Context(), id, day)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entry": entry,
		"total": entry.Total(),
	})
}

func (h Handler) ListPackages(c *gin.Context) {
	pkgs, err := h.Packages.List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

func (h Handler) GetPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Packages.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
