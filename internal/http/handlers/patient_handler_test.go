package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/services"
)

func TestListPatients_FacilityFilterAndShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var facility string
	h := New(stubQuery{
		patients: func(_ context.Context, f string) ([]domain.PatientSummary, error) {
			facility = f
			return []domain.PatientSummary{
				{Name: "Jane Smith", VisitStatus: domain.VisitUnknown, HasError: true},
				{Name: "John Doe", VisitStatus: domain.VisitAdmitted},
			}, nil
		},
	}, nil, nil, nil)
	r := gin.New()
	r.GET("/patients", h.ListPatients)

	w := doJSON(r, http.MethodGet, "/patients?facility=Facility%20A", "", nil)
	if w.Code != http.StatusOK || facility != "Facility A" {
		t.Fatalf("status=%d facility=%q", w.Code, facility)
	}
	var resp ListPatientsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Patients) != 2 || !resp.Patients[0].HasError || resp.Patients[1].VisitStatus != domain.VisitAdmitted {
		t.Fatalf("unexpected: %+v", resp.Patients)
	}
}

func TestSetVisitStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(stubQuery{
		visit: func(_ context.Context, p string, s domain.VisitStatus) (*domain.PatientVisit, error) {
			if !s.Valid() {
				return nil, &services.ValidationError{Field: "status", Reason: "unknown"}
			}
			return &domain.PatientVisit{Patient: p, Status: s, UpdatedAt: time.Now()}, nil
		},
	}, nil, nil, nil)
	r := gin.New()
	r.PUT("/patients/:name/visit-status", h.SetVisitStatus)

	w := doJSON(r, http.MethodPut, "/patients/Jane%20Smith/visit-status", `{"status":"Discharged"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}
	var v domain.PatientVisit
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Patient != "Jane Smith" || v.Status != domain.VisitDischarged {
		t.Fatalf("visit: %+v", v)
	}

	if w := doJSON(r, http.MethodPut, "/patients/Jane%20Smith/visit-status", `{}`, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing status: %d", w.Code)
	}
	if w := doJSON(r, http.MethodPut, "/patients/Jane%20Smith/visit-status", `{"status":"Lost"}`, nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown status: %d", w.Code)
	}
}

func TestKpis_ComputeAndSample(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broken := false
	h := New(nil, stubKpis{
		compute: func(context.Context) (*domain.KpiData, error) {
			if broken {
				return nil, errors.New("db down")
			}
			return &domain.KpiData{TotalMessages: 20, ErrorMessages: 7, CriticalErrors: 4, SuccessRate: 55, SuccessRateTrend: []float64{}}, nil
		},
		sample: func(context.Context) (*domain.KpiSample, error) {
			return &domain.KpiSample{SuccessRate: 55, TakenAt: time.Now()}, nil
		},
	}, nil, nil)
	r := gin.New()
	r.GET("/kpis", h.GetKpis)
	r.POST("/kpis/samples", h.RecordKpiSample)

	w := doJSON(r, http.MethodGet, "/kpis", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("kpis: %d", w.Code)
	}
	var k domain.KpiData
	_ = json.Unmarshal(w.Body.Bytes(), &k)
	if k.TotalMessages != 20 || k.SuccessRate != 55 || k.SuccessRateTrend == nil {
		t.Fatalf("kpis body: %+v", k)
	}

	if w := doJSON(r, http.MethodPost, "/kpis/samples", "", nil); w.Code != http.StatusCreated {
		t.Fatalf("sample: %d", w.Code)
	}

	broken = true
	w = doJSON(r, http.MethodGet, "/kpis", "", nil)
	if w.Code != http.StatusInternalServerError || decodeErr(t, w).Code != ErrCodeInternal {
		t.Fatalf("failure: %d %s", w.Code, w.Body.String())
	}
}
