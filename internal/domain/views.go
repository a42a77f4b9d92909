package domain

// PatientSummary is derived per query and never persisted.
type PatientSummary struct {
	Name        string      `json:"name"`
	VisitStatus VisitStatus `json:"visit_status"`
	HasError    bool        `json:"has_error"`
}

// KpiData backs the dashboard tiles.
type KpiData struct {
	TotalMessages    int64     `json:"total_messages"`
	ErrorMessages    int64     `json:"error_messages"`
	CriticalErrors   int64     `json:"critical_errors"`
	SuccessRate      float64   `json:"success_rate"`
	SuccessRateTrend []float64 `json:"success_rate_trend"`
}
