package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/venuegate/courier/internal/domain"
	"github.com/venuegate/courier/internal/repository"
	"github.com/venuegate/courier/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type DispatchService interface {
	SendConfirmation(ctx context.Context, req service.ConfirmationRequest) (*service.DispatchResult, error)
	GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.DeliveryRecord, int64, error)
	GetEventSummary(ctx context.Context, eventID string) (*service.EventSummary, error)
}

type BroadcastService interface {
	Run(ctx context.Context, segment domain.Segment, messageBody string) (*service.BroadcastReport, error)
}

type FeedbackService interface {
	Run(ctx context.Context, eventID string, surveyLink string) (*service.FeedbackReport, error)
}

type DeliveryHandler struct {
	dispatch   DispatchService
	broadcasts BroadcastService
	feedback   FeedbackService
}

func NewDeliveryHandler(dispatch DispatchService, broadcasts BroadcastService, feedback FeedbackService) (*DeliveryHandler, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if broadcasts == nil {
		return nil, fmt.Errorf("broadcast service is required")
	}
	if feedback == nil {
		return nil, fmt.Errorf("feedback service is required")
	}
	return &DeliveryHandler{dispatch: dispatch, broadcasts: broadcasts, feedback: feedback}, nil
}

func RegisterDeliveryRoutes(router fiber.Router, dispatch DispatchService, broadcasts BroadcastService, feedback FeedbackService) error {
	h, err := NewDeliveryHandler(dispatch, broadcasts, feedback)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/dispatch", h.Dispatch)
	v1.Post("/broadcasts", h.RunBroadcast)
	v1.Post("/feedback", h.RunFeedback)
	v1.Get("/deliveries/:id", h.GetDelivery)
	v1.Get("/deliveries", h.ListDeliveries)
	v1.Get("/events/:eventId/deliveries/summary", h.GetEventSummary)

	return nil
}

type dispatchRequest struct {
	Kind             string             `json:"kind"`
	RecipientAddress string             `json:"recipientAddress"`
	RecipientName    string             `json:"recipientName"`
	Correlation      correlationRequest `json:"correlation"`
	TemplateFields   templateFields     `json:"templateFields"`
}

type correlationRequest struct {
	EventID   string  `json:"eventId"`
	BookingID *string `json:"bookingId,omitempty"`
}

type templateFields struct {
	EventName string `json:"eventName"`
	EventDate string `json:"eventDate"`
	EventTime string `json:"eventTime"`
	Location  string `json:"location"`
}

type dispatchResponse struct {
	Outcome           string  `json:"outcome"`
	DeliveryRecordID  string  `json:"deliveryRecordId"`
	ProviderMessageID *string `json:"providerMessageId,omitempty"`
	Error             string  `json:"error,omitempty"`
}

type broadcastRequest struct {
	Segment     string `json:"segment"`
	MessageBody string `json:"messageBody"`
}

type broadcastResponse struct {
	SentCount      int `json:"sentCount"`
	FailedCount    int `json:"failedCount"`
	TotalCustomers int `json:"totalCustomers"`
}

type feedbackRequest struct {
	EventID      string `json:"eventId"`
	FeedbackLink string `json:"feedbackLink"`
}

type feedbackResponse struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

type deliveryResponse struct {
	ID                string            `json:"id"`
	Kind              string            `json:"kind"`
	EventID           *string           `json:"eventId,omitempty"`
	BookingID         *string           `json:"bookingId,omitempty"`
	Recipient         string            `json:"recipient"`
	RecipientName     string            `json:"recipientName,omitempty"`
	Status            string            `json:"status"`
	ProviderMessageID *string           `json:"providerMessageId,omitempty"`
	ErrorText         *string           `json:"errorText,omitempty"`
	TemplateMetadata  map[string]string `json:"templateMetadata,omitempty"`
	SentAt            *time.Time        `json:"sentAt,omitempty"`
	DeliveredAt       *time.Time        `json:"deliveredAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

type listDeliveriesResponse struct {
	Data []deliveryResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type eventSummaryResponse struct {
	EventID string            `json:"eventId"`
	Total   int               `json:"total"`
	Counts  []statusCountItem `json:"counts"`
}

type statusCountItem struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (h *DeliveryHandler) Dispatch(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseKindFromString(req.Kind)
	if err != nil {
		return toHTTPError(err)
	}
	if kind != domain.KindConfirmation {
		return toHTTPError(fmt.Errorf("%w: only confirmation dispatches are accepted here", domain.ErrValidation))
	}

	result, err := h.dispatch.SendConfirmation(c.Context(), service.ConfirmationRequest{
		RecipientAddress: req.RecipientAddress,
		RecipientName:    req.RecipientName,
		EventID:          req.Correlation.EventID,
		BookingID:        req.Correlation.BookingID,
		EventName:        req.TemplateFields.EventName,
		EventDate:        req.TemplateFields.EventDate,
		EventTime:        req.TemplateFields.EventTime,
		Location:         req.TemplateFields.Location,
	})
	if err != nil {
		return toHTTPError(err)
	}

	resp := dispatchResponse{
		Outcome: string(result.Outcome),
		Error:   result.ErrorText,
	}
	if result.Record != nil {
		resp.DeliveryRecordID = result.Record.ID
		resp.ProviderMessageID = result.Record.ProviderMessageID
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *DeliveryHandler) RunBroadcast(c *fiber.Ctx) error {
	var req broadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	segment, err := domain.ParseSegmentFromString(req.Segment)
	if err != nil {
		return toHTTPError(err)
	}

	report, err := h.broadcasts.Run(c.Context(), segment, req.MessageBody)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(broadcastResponse{
		SentCount:      report.SentCount,
		FailedCount:    report.FailedCount,
		TotalCustomers: report.TotalCustomers,
	})
}

func (h *DeliveryHandler) RunFeedback(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	report, err := h.feedback.Run(c.Context(), req.EventID, req.FeedbackLink)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(feedbackResponse{
		Sent:   report.Sent,
		Failed: report.Failed,
		Total:  report.Total,
	})
}

func (h *DeliveryHandler) GetDelivery(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	record, err := h.dispatch.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryResponse(record))
}

func (h *DeliveryHandler) ListDeliveries(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	records, total, err := h.dispatch.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]deliveryResponse, 0, len(records))
	for _, record := range records {
		r := record
		data = append(data, toDeliveryResponse(&r))
	}

	return c.Status(fiber.StatusOK).JSON(listDeliveriesResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *DeliveryHandler) GetEventSummary(c *fiber.Ctx) error {
	eventID := strings.TrimSpace(c.Params("eventId"))
	summary, err := h.dispatch.GetEventSummary(c.Context(), eventID)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]statusCountItem, 0, len(summary.Counts))
	for _, status := range []domain.Status{domain.StatusPending, domain.StatusSent, domain.StatusDelivered, domain.StatusFailed} {
		if count, ok := summary.Counts[status]; ok {
			items = append(items, statusCountItem{Status: status.String(), Count: count})
		}
	}

	return c.Status(fiber.StatusOK).JSON(eventSummaryResponse{
		EventID: summary.EventID,
		Total:   summary.Total,
		Counts:  items,
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawKind := strings.TrimSpace(c.Query("kind")); rawKind != "" {
		kind, err := domain.ParseKindFromString(rawKind)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Kind = &kind
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if eventID := strings.TrimSpace(c.Query("eventId")); eventID != "" {
		params.EventID = &eventID
	}

	return params, nil
}

func toDeliveryResponse(record *domain.DeliveryRecord) deliveryResponse {
	if record == nil {
		return deliveryResponse{}
	}

	return deliveryResponse{
		ID:                record.ID,
		Kind:              record.Kind.String(),
		EventID:           record.EventID,
		BookingID:         record.BookingID,
		Recipient:         record.Recipient,
		RecipientName:     record.RecipientName,
		Status:            record.Status.String(),
		ProviderMessageID: record.ProviderMessageID,
		ErrorText:         record.ErrorText,
		TemplateMetadata:  record.TemplateMetadata,
		SentAt:            record.SentAt,
		DeliveredAt:       record.DeliveredAt,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
