package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/services"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

type createBookingRequest struct {
	CustomerID       int64    `json:"customer_id"`
	VehicleID        int64    `json:"vehicle_id"`
	TechnicianID     *int64   `json:"technician_id"`
	ServicePackageID *int64   `json:"service_package_id"`
	TimeSlot         string   `json:"time_slot"`
	Address          string   `json:"address"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
}

func (h Handler) parseSlot(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := utils.ParseDateTime(raw, h.loc())
	if err != nil {
		return nil, domain.ValidationError{Field: "time_slot", Msg: "unrecognized date-time"}
	}
	return &t, nil
}

// CreateBooking: POST /api/bookings
func (h Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	slot, err := h.parseSlot(req.TimeSlot)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	b, err := h.Bookings.CreateBooking(c.Request.Context(), services.CreateBookingInput{
		CustomerID:       req.CustomerID,
		VehicleID:        req.VehicleID,
		TechnicianID:     req.TechnicianID,
		ServicePackageID: req.ServicePackageID,
		TimeSlot:         slot,
		Address:          req.Address,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h Handler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.Bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateBooking reschedules: only keys present in the body are changed.
func (h Handler) UpdateBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		respondError(c, http.StatusBadRequest, "invalid_body", "request body is empty", nil)
		return
	}
	fields := map[string]jsoniter.RawMessage{}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &fields); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", "invalid payload", err.Error())
		return
	}
	if _, ok := fields["status"]; ok {
		respondError(c, http.StatusBadRequest, "validation_error", "status changes go through PATCH /api/bookings/:id/status", nil)
		return
	}
	if _, ok := fields["technician_id"]; ok {
		respondError(c, http.StatusBadRequest, "validation_error", "technician changes go through POST /api/bookings/:id/assign", nil)
		return
	}

	var upd models.BookingUpdate
	if v, ok := fields["time_slot"]; ok {
		var s string
		if err := jsoniter.Unmarshal(v, &s); err != nil || strings.TrimSpace(s) == "" {
			RespondDomainError(c, domain.MissingPackageOrSlot())
			return
		}
		slot, err := h.parseSlot(s)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		upd.TimeSlot = slot
	}
	if v, ok := fields["service_package_id"]; ok {
		var pkgID int64
		if err := jsoniter.Unmarshal(v, &pkgID); err != nil || pkgID <= 0 {
			RespondDomainError(c, domain.MissingPackageOrSlot())
			return
		}
		upd.ServicePackageID = &pkgID
	}

	b, err := h.Bookings.UpdateSchedule(c.Request.Context(), id, upd)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type assignRequest struct {
	TechnicianID int64 `json:"technician_id"`
}

// AssignTechnician: technician_id 0 or omitted auto-assigns.
func (h Handler) AssignTechnician(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if c.Request.ContentLength != 0 && !BindJSONOrError(c, &req) {
		return
	}
	b, err := h.Bookings.AssignTechnician(c.Request.Context(), id, req.TechnicianID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h Handler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	b, err := h.Status.Transition(c.Request.Context(), id, req.Status)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h Handler) GetFulfillment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	steps, err := h.Status.Steps(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": id, "steps": steps})
}
