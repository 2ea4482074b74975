// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"time"

	"github.com/synergydash/synergy-backend/app/dto"
	businessflow "github.com/synergydash/synergy-backend/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// SynergyIDHandlerInterface defines the contract for the allocator handlers.
type SynergyIDHandlerInterface interface {
	Peek(c fiber.Ctx) error
	Take(c fiber.Ctx) error
	Set(c fiber.Ctx) error
	Reset(c fiber.Ctx) error
	Overview(c fiber.Ctx) error
	ListEvents(c fiber.Ctx) error
	ExportEvents(c fiber.Ctx) error
}

// SynergyIDHandler handles synergy ID allocation and audit log requests.
type SynergyIDHandler struct {
	flow      businessflow.SynergyIDFlow
	eventFlow businessflow.SynergyEventFlow
	validator *validator.Validate
}

// NewSynergyIDHandler creates a new synergy ID handler.
func NewSynergyIDHandler(flow businessflow.SynergyIDFlow, eventFlow businessflow.SynergyEventFlow) *SynergyIDHandler {
	return &SynergyIDHandler{
		flow:      flow,
		eventFlow: eventFlow,
		validator: validator.New(),
	}
}

func (h *SynergyIDHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SynergyIDHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Peek previews the next code for a prefix without minting it.
// Returns the bare code as text/plain for workflow callers and label tooling.
func (h *SynergyIDHandler) Peek(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext()
	defer cancel()

	code, err := h.flow.Peek(ctx, c.Params("prefix"))
	if err != nil {
		return h.flowError(c, err, "Failed to peek next code", "PEEK_FAILED")
	}
	return c.SendString(code)
}

// Take mints the next code for a prefix. The optional JSON body carries
// caller context (purchase order linkage, actor). Returns the bare code as
// text/plain, matching Peek.
func (h *SynergyIDHandler) Take(c fiber.Ctx) error {
	var req dto.TakeCodeRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
		if err := h.validator.Struct(&req); err != nil {
			return h.validationError(c, err)
		}
	}
	h.resolveActor(c, &req.Actor)

	ctx, cancel := h.createRequestContext()
	defer cancel()

	res, err := h.flow.Take(ctx, c.Params("prefix"), &req, h.clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to mint code", "TAKE_FAILED")
	}
	return c.SendString(res.Code)
}

// Set manually overrides a prefix counter. A request that would collide with
// an already minted code comes back as 409 with the smallest safe value; the
// caller must render that distinctly from a transport error.
func (h *SynergyIDHandler) Set(c fiber.Ctx) error {
	var req dto.SetNextSeqRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.validationError(c, err)
	}
	h.resolveActor(c, &req.Actor)

	ctx, cancel := h.createRequestContext()
	defer cancel()

	res, err := h.flow.Set(ctx, c.Params("prefix"), &req, h.clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to set next sequence", "SET_FAILED")
	}

	if !res.Applied {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "sequence_conflict",
			"message":   res.Message,
			"prefix":    res.Prefix,
			"safe_next": res.SafeNext,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"prefix": res.Prefix,
		"next":   res.NextSeq,
	})
}

// Reset moves a prefix counter to the smallest safe value.
func (h *SynergyIDHandler) Reset(c fiber.Ctx) error {
	var req dto.ResetCounterRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
		if err := h.validator.Struct(&req); err != nil {
			return h.validationError(c, err)
		}
	}
	h.resolveActor(c, &req.Actor)

	ctx, cancel := h.createRequestContext()
	defer cancel()

	res, err := h.flow.Reset(ctx, c.Params("prefix"), &req, h.clientMetadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to reset counter", "RESET_FAILED")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"next_seq": res.NextSeq,
	})
}

// Overview returns every prefix counter alongside its ledger statistics.
func (h *SynergyIDHandler) Overview(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext()
	defer cancel()

	res, err := h.flow.Overview(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to build overview", "OVERVIEW_FAILED")
	}
	return c.JSON(res)
}

// ListEvents returns the audit log, newest first.
func (h *SynergyIDHandler) ListEvents(c fiber.Ctx) error {
	req, err := h.parseEventsQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext()
	defer cancel()

	res, err := h.eventFlow.ListEvents(ctx, req)
	if err != nil {
		return h.flowError(c, err, "Failed to list events", "LIST_EVENTS_FAILED")
	}
	return c.JSON(res)
}

// ExportEvents streams the audit log as an xlsx attachment.
func (h *SynergyIDHandler) ExportEvents(c fiber.Ctx) error {
	req, err := h.parseEventsQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContextWithTimeout(2 * time.Minute)
	defer cancel()

	filename, data, err := h.eventFlow.ExportEvents(ctx, req)
	if err != nil {
		return h.flowError(c, err, "Failed to export events", "EXPORT_EVENTS_FAILED")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

func (h *SynergyIDHandler) parseEventsQuery(c fiber.Ctx) (*dto.ListSynergyEventsRequest, error) {
	req := &dto.ListSynergyEventsRequest{
		Limit:  fiber.Query(c, "limit", 0),
		Offset: fiber.Query(c, "offset", 0),
	}
	if v := c.Query("prefix"); v != "" {
		req.Prefix = &v
	}
	if v := c.Query("code"); v != "" {
		req.Code = &v
	}
	if v := c.Query("po_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		req.POID = &id
	}
	return req, nil
}

// resolveActor prefers the authenticated operator identity over whatever the
// request body claims.
func (h *SynergyIDHandler) resolveActor(c fiber.Ctx, actor **string) {
	if name, ok := c.Locals("actor_name").(string); ok && name != "" {
		*actor = &name
	}
}

func (h *SynergyIDHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get(businessflow.RequestIDKey); requestID != "" {
		metadata.SetRequestID(requestID)
	}
	return metadata
}

func (h *SynergyIDHandler) validationError(c fiber.Ctx, err error) error {
	var validationErrors []string
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range fieldErrors {
			validationErrors = append(validationErrors, getValidationErrorMessage(e))
		}
	} else {
		validationErrors = append(validationErrors, err.Error())
	}
	return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
}

// flowError maps business error codes onto HTTP statuses. Everything not
// recognized as a caller mistake is an internal failure.
func (h *SynergyIDHandler) flowError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if be, ok := err.(*businessflow.BusinessError); ok {
		switch be.Code {
		case "INVALID_PREFIX", "INVALID_NEXT_SEQ", "INVALID_LIMIT", "INVALID_OFFSET":
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, be.Error())
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, be.Message, be.Code, nil)
	}
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}

func (h *SynergyIDHandler) createRequestContext() (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(30 * time.Second)
}

func (h *SynergyIDHandler) createRequestContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
