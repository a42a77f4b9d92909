// Catalog HTTP handlers.
//
// Event definitions:
//   - GET    /catalog/events        (list, weak ETag)
//   - POST   /catalog/events        (create, Idempotency-Key)
//   - PATCH  /catalog/events/{id}   (partial update)
//   - DELETE /catalog/events/{id}
//
// Error definitions:
//   - GET    /catalog/errors                       (list, weak ETag)
//   - GET    /catalog/errors/{id}
//   - POST   /catalog/errors                       (create, Idempotency-Key)
//   - PATCH  /catalog/errors/{id}                  (partial update)
//   - DELETE /catalog/errors/{id}
//   - PUT    /catalog/errors/{id}/steps            (replace all steps)
//   - POST   /catalog/errors/{id}/steps/reorder    ({from,to} or {step_ids})
//   - DELETE /catalog/errors/{id}/steps/{stepId}
//
// Idempotency: when the client repeats a create with the same
// Idempotency-Key within the TTL, the handler returns the resource created
// the first time with `Idempotency-Replayed: true` instead of inserting again.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/http/middleware"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
	"github.com/tbourn/hl7-monitor-backend/internal/services"
)

//
// DTOs
//

// CreateEventDefinitionRequest is the payload for POST /catalog/events.
type CreateEventDefinitionRequest struct {
	Name        string `json:"name"        example:"Patient Admit"`
	Code        string `json:"code"        example:"PA"`
	Description string `json:"description" example:"A patient was admitted to a facility."`
}

// UpdateEventDefinitionRequest is the payload for PATCH /catalog/events/{id}.
// Omitted fields are left unchanged.
type UpdateEventDefinitionRequest struct {
	Name        *string `json:"name,omitempty"`
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
}

// StepRequest is one submitted remediation step. ID is optional.
type StepRequest struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description" example:"Check the order ID format."`
}

// CreateErrorDefinitionRequest is the payload for POST /catalog/errors.
type CreateErrorDefinitionRequest struct {
	Name                 string        `json:"name"                   example:"Invalid Order ID"`
	AssociatedEventCodes []string      `json:"associated_event_codes" example:"OP"`
	SolutionSteps        []StepRequest `json:"solution_steps"`
}

// UpdateErrorDefinitionRequest is the payload for PATCH /catalog/errors/{id}.
// A present solution_steps replaces the whole sequence.
type UpdateErrorDefinitionRequest struct {
	Name                 *string        `json:"name,omitempty"`
	AssociatedEventCodes *[]string      `json:"associated_event_codes,omitempty"`
	SolutionSteps        *[]StepRequest `json:"solution_steps,omitempty"`
}

// ReplaceStepsRequest is the payload for PUT /catalog/errors/{id}/steps.
type ReplaceStepsRequest struct {
	SolutionSteps []StepRequest `json:"solution_steps"`
}

// ReorderStepsRequest moves one step (From, To; 0-based) or, when StepIDs is
// set, applies a full arrangement.
type ReorderStepsRequest struct {
	From    *int     `json:"from,omitempty"     example:"2"`
	To      *int     `json:"to,omitempty"       example:"0"`
	StepIDs []string `json:"step_ids,omitempty"`
}

// ListEventDefinitionsResponse wraps the event catalog.
type ListEventDefinitionsResponse struct {
	EventDefinitions []domain.EventDefinition `json:"event_definitions"`
}

// ListErrorDefinitionsResponse wraps the error catalog.
type ListErrorDefinitionsResponse struct {
	ErrorDefinitions []domain.ErrorDefinition `json:"error_definitions"`
}

//
// Helpers
//

func stepInputs(in []StepRequest) []services.StepInput {
	out := make([]services.StepInput, len(in))
	for i, s := range in {
		out[i] = services.StepInput{ID: s.ID, Description: s.Description}
	}
	return out
}

// replay serves a stored create result when the idempotency middleware
// flagged the request. It reports whether a response was written. Only a
// record or resource that is gone lets the request run as a new create; any
// other store error is a 500 so a retry cannot insert a duplicate.
func (h *Handlers) replay(c *gin.Context, fetch func(id string) (any, error)) bool {
	if h.DB == nil || !middleware.IsReplay(c) {
		return false
	}
	key, _ := middleware.GetIdempotencyKey(c)
	rec, err := repo.GetIdempotency(c.Request.Context(), h.DB, middleware.GetIdempotencyScope(c), key, time.Now().UTC())
	if err == nil {
		var prev any
		if prev, err = fetch(rec.ResourceID); err == nil {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			ok(c, rec.Status, prev)
			return true
		}
	}
	if gone(err) {
		return false
	}
	writeError(c, err, ErrCodeCreateFailed)
	return true
}

// gone reports whether err means the record no longer exists.
func gone(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, services.ErrNotFound)
}

// remember stores the create result for later replays. Failures are logged
// and otherwise ignored.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, has := middleware.GetIdempotencyKey(c)
	if h.DB == nil || !has {
		return
	}
	ttl := h.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := repo.CreateIdempotency(c.Request.Context(), h.DB, middleware.GetIdempotencyScope(c), key, resourceID, status, ttl); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
	}
}

//
// Event definitions
//

// ListEventDefinitions godoc
// @ID          listEventDefinitions
// @Summary     List event definitions
// @Tags        Catalog
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListEventDefinitionsResponse
// @Header      200  {string}  ETag  "Weak ETag for the catalog"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/events [get]
func (h *Handlers) ListEventDefinitions(c *gin.Context) {
	ctx := c.Request.Context()
	if h.DB != nil {
		if count, maxAt, err := repo.EventDefinitionsStats(ctx, h.DB); err == nil {
			if notModified(c, weakETag("event_definitions", "", count, maxAt)) {
				return
			}
		}
	}
	items, err := h.events.List(ctx)
	if err != nil {
		writeError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListEventDefinitionsResponse{EventDefinitions: items})
}

// CreateEventDefinition godoc
// @ID          createEventDefinition
// @Summary     Create an event definition
// @Description Name, code and description are trimmed and required; the code is upper-cased and must be unique.
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                                   false  "Key for safe retries"
// @Param       body             body    handlers.CreateEventDefinitionRequest    true   "Event definition"
// @Success     201  {object}  domain.EventDefinition
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Code already exists"
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/events [post]
func (h *Handlers) CreateEventDefinition(c *gin.Context) {
	var req CreateEventDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if h.replay(c, func(id string) (any, error) { return repo.GetEventDefinition(c.Request.Context(), h.DB, id) }) {
		return
	}

	d, err := h.events.Create(c.Request.Context(), req.Name, req.Code, req.Description)
	if err != nil {
		writeError(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, d.ID, http.StatusCreated)
	ok(c, http.StatusCreated, d)
}

// UpdateEventDefinition godoc
// @ID          updateEventDefinition
// @Summary     Update an event definition
// @Description Applies the present fields; a rejected update leaves the stored record unchanged.
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       id    path  string                                  true  "Event definition ID"  example(evt-def-001)
// @Param       body  body  handlers.UpdateEventDefinitionRequest   true  "Fields to change"
// @Success     200  {object}  domain.EventDefinition
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/events/{id} [patch]
func (h *Handlers) UpdateEventDefinition(c *gin.Context) {
	var req UpdateEventDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	d, err := h.events.Update(c.Request.Context(), c.Param("id"), services.EventDefinitionPatch{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, d)
}

// DeleteEventDefinition godoc
// @ID          deleteEventDefinition
// @Summary     Delete an event definition
// @Description Error definitions that reference the code keep it.
// @Tags        Catalog
// @Param       id  path  string  true  "Event definition ID"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/events/{id} [delete]
func (h *Handlers) DeleteEventDefinition(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

//
// Error definitions
//

// ListErrorDefinitions godoc
// @ID          listErrorDefinitions
// @Summary     List error definitions with their steps
// @Tags        Catalog
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListErrorDefinitionsResponse
// @Header      200  {string}  ETag  "Weak ETag for the catalog"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors [get]
func (h *Handlers) ListErrorDefinitions(c *gin.Context) {
	ctx := c.Request.Context()
	if h.DB != nil {
		if count, maxAt, err := repo.ErrorDefinitionsStats(ctx, h.DB); err == nil {
			if notModified(c, weakETag("error_definitions", "", count, maxAt)) {
				return
			}
		}
	}
	items, err := h.errors.List(ctx)
	if err != nil {
		writeError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListErrorDefinitionsResponse{ErrorDefinitions: items})
}

// GetErrorDefinition godoc
// @ID          getErrorDefinition
// @Summary     Get one error definition
// @Tags        Catalog
// @Produce     json
// @Param       id  path  string  true  "Error definition ID"  example(err-def-001)
// @Success     200  {object}  domain.ErrorDefinition
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors/{id} [get]
func (h *Handlers) GetErrorDefinition(c *gin.Context) {
	d, err := h.errors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, d)
}

// CreateErrorDefinition godoc
// @ID          createErrorDefinition
// @Summary     Create an error definition
// @Description At least one associated event code is required. Steps are numbered 1..N in the order given.
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                                   false  "Key for safe retries"
// @Param       body             body    handlers.CreateErrorDefinitionRequest    true   "Error definition"
// @Success     201  {object}  domain.ErrorDefinition
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors [post]
func (h *Handlers) CreateErrorDefinition(c *gin.Context) {
	var req CreateErrorDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if h.replay(c, func(id string) (any, error) { return h.errors.Get(c.Request.Context(), id) }) {
		return
	}

	d, err := h.errors.Create(c.Request.Context(), services.ErrorDefinitionInput{
		Name:                 req.Name,
		AssociatedEventCodes: req.AssociatedEventCodes,
		SolutionSteps:        stepInputs(req.SolutionSteps),
	})
	if err != nil {
		writeError(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, d.ID, http.StatusCreated)
	ok(c, http.StatusCreated, d)
}

// UpdateErrorDefinition godoc
// @ID          updateErrorDefinition
// @Summary     Update an error definition
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       id    path  string                                  true  "Error definition ID"
// @Param       body  body  handlers.UpdateErrorDefinitionRequest   true  "Fields to change"
// @Success     200  {object}  domain.ErrorDefinition
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors/{id} [patch]
func (h *Handlers) UpdateErrorDefinition(c *gin.Context) {
	var req UpdateErrorDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p := services.ErrorDefinitionPatch{Name: req.Name, AssociatedEventCodes: req.AssociatedEventCodes}
	if req.SolutionSteps != nil {
		steps := stepInputs(*req.SolutionSteps)
		p.SolutionSteps = &steps
	}
	d, err := h.errors.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		writeError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, d)
}

// DeleteErrorDefinition godoc
// @ID          deleteErrorDefinition
// @Summary     Delete an error definition and its steps
// @Tags        Catalog
// @Param       id  path  string  true  "Error definition ID"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors/{id} [delete]
func (h *Handlers) DeleteErrorDefinition(c *gin.Context) {
	if err := h.errors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// ReplaceSteps godoc
// @ID          replaceSolutionSteps
// @Summary     Replace all solution steps
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       id    path  string                         true  "Error definition ID"
// @Param       body  body  handlers.ReplaceStepsRequest   true  "New step sequence"
// @Success     200  {object}  domain.ErrorDefinition
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors/{id}/steps [put]
func (h *Handlers) ReplaceSteps(c *gin.Context) {
	var req ReplaceStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	d, err := h.errors.ReplaceSteps(c.Request.Context(), c.Param("id"), stepInputs(req.SolutionSteps))
	if err != nil {
		writeError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, d)
}

// ReorderSteps godoc
// @ID          reorderSolutionSteps
// @Summary     Reorder solution steps
// @Description Send {from, to} (0-based) to move one step, or {step_ids} listing every step once in the new order. Steps are renumbered 1..N.
// @Tags        Catalog
// @Accept      json
// @Produce     json
// @Param       id    path  string                         true  "Error definition ID"
// @Param       body  body  handlers.ReorderStepsRequest   true  "Move or arrangement"
// @Success     200  {object}  domain.ErrorDefinition
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors/{id}/steps/reorder [post]
func (h *Handlers) ReorderSteps(c *gin.Context) {
	var req ReorderStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	var (
		d   *domain.ErrorDefinition
		err error
	)
	switch {
	case len(req.StepIDs) > 0:
		d, err = h.errors.ArrangeSteps(c.Request.Context(), c.Param("id"), req.StepIDs)
	case req.From != nil && req.To != nil:
		d, err = h.errors.ReorderSteps(c.Request.Context(), c.Param("id"), *req.From, *req.To)
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "send either from and to, or step_ids")
		return
	}
	if err != nil {
		writeError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, d)
}

// DeleteStep godoc
// @ID          deleteSolutionStep
// @Summary     Delete one solution step
// @Tags        Catalog
// @Produce     json
// @Param       id      path  string  true  "Error definition ID"
// @Param       stepId  path  string  true  "Step ID"
// @Success     200  {object}  domain.ErrorDefinition
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /catalog/errors/{id}/steps/{stepId} [delete]
func (h *Handlers) DeleteStep(c *gin.Context) {
	d, err := h.errors.DeleteStep(c.Request.Context(), c.Param("id"), c.Param("stepId"))
	if err != nil {
		writeError(c, err, ErrCodeDeleteFailed)
		return
	}
	ok(c, http.StatusOK, d)
}
