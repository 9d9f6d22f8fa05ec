package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation"
	"github.com/extmarket/modgate/moderation/store"
)

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, moderation.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, moderation.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, moderation.ErrAlreadyDecided):
		code = http.StatusConflict
	default:
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
	}
	if code >= 500 {
		srv.logger.Warn("modgated-http-internal-error", "err", err)
	}
	if !c.Response().Committed {
		c.JSON(code, GenericStatus{Daemon: "modgated", Status: "error", Message: err.Error()})
	}
}

// parseQueueQuery builds the review-queue listing query. Approved records
// are done and drafts are not queued, so the default shows only pending and
// rejected; an explicit status param overrides.
func parseQueueQuery(c echo.Context) (store.QueueQuery, error) {
	q := store.QueueQuery{
		SubjectType: c.QueryParam("type"),
		Statuses:    []models.DecisionStatus{models.DecisionPending, models.DecisionRejected},
		Limit:       50,
	}
	if s := c.QueryParam("status"); s != "" {
		status := models.DecisionStatus(s)
		if !status.Valid() {
			return q, echo.NewHTTPError(http.StatusBadRequest, "unknown status: "+s)
		}
		q.Statuses = []models.DecisionStatus{status}
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "bad limit")
		}
		q.Limit = n
	}
	if s := c.QueryParam("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "bad offset")
		}
		q.Offset = n
	}
	return q, nil
}

func (srv *Server) HandleQueue(c echo.Context) error {
	ctx := c.Request().Context()

	q, err := parseQueueQuery(c)
	if err != nil {
		return err
	}
	recs, err := srv.stores.Records().Queue(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(200, map[string]any{"records": recs})
}

type changeView struct {
	FieldName  string `json:"field_name"`
	FieldLabel string `json:"field_label"`
	Changed    bool   `json:"changed"`
	Old        any    `json:"old"`
	New        any    `json:"new"`
	HTML       string `json:"html"`
}

func (srv *Server) HandleReview(c echo.Context) error {
	ctx := c.Request().Context()

	rec, err := srv.recordParam(c)
	if err != nil {
		return err
	}
	review, err := srv.engine.ReviewFor(ctx, rec)
	if err != nil {
		return err
	}

	changes := make(map[string]changeView, len(review.Changes))
	for name, ch := range review.Changes {
		frag, err := ch.RenderHTML()
		if err != nil {
			return err
		}
		changes[name] = changeView{
			FieldName:  ch.FieldName,
			FieldLabel: ch.FieldLabel,
			Changed:    ch.Changed(),
			Old:        ch.Old,
			New:        ch.New,
			HTML:       frag,
		}
	}
	return c.JSON(200, map[string]any{
		"record":  review.Record,
		"old":     review.Old,
		"new":     review.New,
		"changes": changes,
		"status":  srv.engine.StatusMessage(rec),
	})
}

type decisionRequest struct {
	Reason string `json:"reason"`
}

func (srv *Server) HandleApprove(c echo.Context) error {
	return srv.handleDecision(c, srv.engine.Approve)
}

func (srv *Server) HandleReject(c echo.Context) error {
	return srv.handleDecision(c, srv.engine.Reject)
}

func (srv *Server) HandleSetPending(c echo.Context) error {
	return srv.handleDecision(c, srv.engine.SetPending)
}

type decisionFunc func(ctx context.Context, rec *models.ModerationRecord, decidedBy, reason string) (string, error)

func (srv *Server) handleDecision(c echo.Context, decide decisionFunc) error {
	ctx := c.Request().Context()

	rec, err := srv.recordParam(c)
	if err != nil {
		return err
	}
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request body")
	}
	reviewer := c.Request().Header.Get("X-Reviewer")
	if reviewer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing X-Reviewer header")
	}

	msg, err := decide(ctx, rec, reviewer, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(200, map[string]any{"record": rec, "msg": msg})
}

type submitRequest struct {
	Listing  Listing `json:"listing"`
	EditedBy string  `json:"edited_by"`
	Draft    bool    `json:"draft"`
}

func (srv *Server) HandleSubmitListing(c echo.Context) error {
	ctx := c.Request().Context()

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request body")
	}
	if req.Listing.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "listing id is required")
	}

	rec, status, err := srv.engine.Submit(ctx, &req.Listing, req.EditedBy, moderation.SubmitOptions{Draft: req.Draft})
	if err != nil {
		return err
	}
	return c.JSON(200, map[string]any{
		"record": rec,
		"status": status,
		"msg":    srv.engine.StatusMessage(rec),
	})
}

type bulkRequest struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (srv *Server) HandleBulkApprove(c echo.Context) error {
	return srv.handleBulk(c, []models.DecisionStatus{models.DecisionPending}, srv.engine.Approve)
}

func (srv *Server) HandleBulkReject(c echo.Context) error {
	return srv.handleBulk(c, []models.DecisionStatus{models.DecisionPending}, srv.engine.Reject)
}

func (srv *Server) HandleBulkSetPending(c echo.Context) error {
	return srv.handleBulk(c,
		[]models.DecisionStatus{models.DecisionApproved, models.DecisionRejected},
		srv.engine.SetPending)
}

// handleBulk runs one decision over every matching record. Records decided
// by a concurrent reviewer mid-loop are skipped, not failed.
func (srv *Server) handleBulk(c echo.Context, statuses []models.DecisionStatus, decide decisionFunc) error {
	ctx := c.Request().Context()

	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request body")
	}
	reviewer := c.Request().Header.Get("X-Reviewer")
	if reviewer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing X-Reviewer header")
	}

	recs, err := srv.stores.Records().Queue(ctx, store.QueueQuery{
		SubjectType: req.Type,
		Statuses:    statuses,
	})
	if err != nil {
		return err
	}

	var msgs []string
	for i := range recs {
		msg, err := decide(ctx, &recs[i], reviewer, req.Reason)
		if errors.Is(err, moderation.ErrAlreadyDecided) {
			continue
		}
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return c.JSON(200, map[string]any{"decided": len(msgs), "msgs": msgs})
}

func (srv *Server) recordParam(c echo.Context) (*models.ModerationRecord, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "bad record ID")
	}
	return srv.stores.Records().Get(c.Request().Context(), id)
}
