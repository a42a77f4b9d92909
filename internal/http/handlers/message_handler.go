// Message HTTP handlers.
//
// This file exposes the read side of the interface log:
//   - GET /messages                     (filtered grid, weak ETag)
//   - GET /messages/{id}                (detail)
//   - GET /messages/{id}/solution       (matching error definitions)
//   - GET /patients/{name}/messages     (patient timeline)
//
// Filters come from the query string: status, from, to (YYYY-MM-DD or
// RFC 3339, inclusive whole days) and event (repeatable or comma-separated).
// Unparseable dates are a 400; semantically invalid filters (unknown status,
// from after to) are a 422 from the service.
package handlers

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hl7-monitor-backend/internal/domain"
	"github.com/tbourn/hl7-monitor-backend/internal/repo"
	"github.com/tbourn/hl7-monitor-backend/internal/services"
)

// ListMessagesResponse wraps a filtered slice of the log.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
	Count    int              `json:"count"`
}

// parseDay accepts a calendar day or a full timestamp.
func parseDay(v string) (*time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// messageQuery reads the filter parameters. It writes a 400 and returns false
// when a date cannot be parsed.
func messageQuery(c *gin.Context) (services.MessageQuery, bool) {
	q := services.MessageQuery{Status: c.Query("status")}

	from, okFrom := parseDay(c.Query("from"))
	to, okTo := parseDay(c.Query("to"))
	if !okFrom || !okTo {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from/to must be YYYY-MM-DD or RFC 3339")
		return q, false
	}
	q.From, q.To = from, to

	for _, raw := range c.QueryArray("event") {
		for _, e := range strings.Split(raw, ",") {
			if e = strings.TrimSpace(e); e != "" {
				q.Events = append(q.Events, e)
			}
		}
	}
	return q, true
}

// filterScope is a short stable key for f, empty for the unfiltered log.
// Event order and duplicates do not change it.
func filterScope(f domain.MessageFilter) string {
	if f.Status == "" && f.Range.IsZero() && len(f.Events) == 0 {
		return ""
	}
	events := append([]string(nil), f.Events...)
	sort.Strings(events)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%s", f.Status, unixOrZero(f.Range.From), unixOrZero(f.Range.To), strings.Join(events, "\x00"))
	return strconv.FormatUint(h.Sum64(), 36)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List interface messages
// @Description Returns the message log filtered by status, inclusive day range and event names, most recent first. Supports weak ETag via If-None-Match.
// @Tags        Messages
// @Produce     json
// @Param       status         query   string    false  "success | error | pending"  example(error)
// @Param       from           query   string    false  "First day (YYYY-MM-DD)"     example(2024-07-10)
// @Param       to             query   string    false  "Last day (YYYY-MM-DD)"      example(2024-07-10)
// @Param       event          query   []string  false  "Event names (any of)"       collectionFormat(multi)
// @Param       If-None-Match  header  string    false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for the log"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	q, okQ := messageQuery(c)
	if !okQ {
		return
	}

	// Invalid filters are a 422 even when If-None-Match would match.
	f, err := q.Filter()
	if err != nil {
		writeError(c, err, ErrCodeListFailed)
		return
	}

	if h.DB != nil {
		if count, maxAt, err := repo.MessagesStats(ctx, h.DB); err == nil {
			if notModified(c, weakETag("messages", filterScope(f), count, maxAt)) {
				return
			}
		}
	}

	items, err := h.query.ListMessages(ctx, q)
	if err != nil {
		writeError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Count: len(items)})
}

// ListPatientMessages godoc
// @ID          listPatientMessages
// @Summary     Patient message timeline
// @Description Returns one patient's messages, most recent first, with the same filters as /messages.
// @Tags        Patients
// @Produce     json
// @Param       name    path   string    true   "Patient name"
// @Param       status  query  string    false  "success | error | pending"
// @Param       from    query  string    false  "First day (YYYY-MM-DD)"
// @Param       to      query  string    false  "Last day (YYYY-MM-DD)"
// @Param       event   query  []string  false  "Event names (any of)"  collectionFormat(multi)
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /patients/{name}/messages [get]
func (h *Handlers) ListPatientMessages(c *gin.Context) {
	q, okQ := messageQuery(c)
	if !okQ {
		return
	}
	items, err := h.query.ListMessagesForPatient(c.Request.Context(), c.Param("name"), q)
	if err != nil {
		writeError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Count: len(items)})
}

// GetMessage godoc
// @ID          getMessage
// @Summary     Message detail
// @Tags        Messages
// @Produce     json
// @Param       id  path  string  true  "Message ID"  example(msg-002)
// @Success     200  {object}  domain.Message
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /messages/{id} [get]
func (h *Handlers) GetMessage(c *gin.Context) {
	m, err := h.query.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, m)
}

// GetSolution godoc
// @ID          getMessageSolution
// @Summary     Remediation for an error message
// @Description Resolves the message's event to its code and ranks the error definitions linked to that code against the error detail. Match is the best candidate, or null when none applies.
// @Tags        Messages
// @Produce     json
// @Param       id  path  string  true  "Message ID"  example(msg-002)
// @Success     200  {object}  services.Solution
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /messages/{id}/solution [get]
func (h *Handlers) GetSolution(c *gin.Context) {
	sol, err := h.query.SolutionFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, sol)
}
