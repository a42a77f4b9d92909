// Patient and KPI HTTP handlers.
//
//   - GET  /patients                       (summaries, optional ?facility=)
//   - PUT  /patients/{name}/visit-status   (record external visit status)
//   - GET  /kpis                           (dashboard tiles)
//   - POST /kpis/samples                   (record a trend sample now)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
)

// ListPatientsResponse wraps the patient summaries.
type ListPatientsResponse struct {
	Patients []domain.PatientSummary `json:"patients"`
}

// SetVisitStatusRequest is the payload for PUT /patients/{name}/visit-status.
type SetVisitStatusRequest struct {
	Status string `json:"status" binding:"required" example:"Admitted"`
}

// ListPatients godoc
// @ID          listPatients
// @Summary     Patient summaries
// @Description One row per distinct patient (optionally within a facility) with visit status and whether any of their messages errored, in locale-aware name order.
// @Tags        Patients
// @Produce     json
// @Param       facility  query  string  false  "Facility name"  example(Facility A)
// @Success     200  {object}  handlers.ListPatientsResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /patients [get]
func (h *Handlers) ListPatients(c *gin.Context) {
	items, err := h.query.SummarizePatients(c.Request.Context(), c.Query("facility"))
	if err != nil {
		writeError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListPatientsResponse{Patients: items})
}

// SetVisitStatus godoc
// @ID          setVisitStatus
// @Summary     Record a patient's visit status
// @Tags        Patients
// @Accept      json
// @Produce     json
// @Param       name  path  string                            true  "Patient name"
// @Param       body  body  handlers.SetVisitStatusRequest    true  "Admitted | Discharged | Inpatient | Outpatient | Pending"
// @Success     200  {object}  domain.PatientVisit
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /patients/{name}/visit-status [put]
func (h *Handlers) SetVisitStatus(c *gin.Context) {
	var req SetVisitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}
	v, err := h.query.SetVisitStatus(c.Request.Context(), c.Param("name"), domain.VisitStatus(req.Status))
	if err != nil {
		writeError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, v)
}

// GetKpis godoc
// @ID          getKpis
// @Summary     Dashboard KPI tiles
// @Description Total, error and critical error counts, success rate and its recent trend.
// @Tags        KPIs
// @Produce     json
// @Success     200  {object}  domain.KpiData
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /kpis [get]
func (h *Handlers) GetKpis(c *gin.Context) {
	k, err := h.kpis.Compute(c.Request.Context())
	if err != nil {
		writeError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, k)
}

// RecordKpiSample godoc
// @ID          recordKpiSample
// @Summary     Record a success-rate sample
// @Description Stores the current success rate as a trend point. The server also samples on a timer.
// @Tags        KPIs
// @Produce     json
// @Success     201  {object}  domain.KpiSample
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /kpis/samples [post]
func (h *Handlers) RecordKpiSample(c *gin.Context) {
	s, err := h.kpis.RecordSample(c.Request.Context())
	if err != nil {
		writeError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, s)
}
