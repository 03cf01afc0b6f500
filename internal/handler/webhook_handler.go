package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/venuegate/courier/internal/service"
)

type WebhookService interface {
	Ingest(ctx context.Context, callback service.StatusCallback) error
}

type WebhookHandler struct {
	webhooks WebhookService
}

func NewWebhookHandler(webhooks WebhookService) (*WebhookHandler, error) {
	if webhooks == nil {
		return nil, fmt.Errorf("webhook service is required")
	}
	return &WebhookHandler{webhooks: webhooks}, nil
}

func RegisterWebhookRoutes(router fiber.Router, webhooks WebhookService) error {
	h, err := NewWebhookHandler(webhooks)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/webhooks/status", h.IngestStatus)

	return nil
}

type statusCallbackRequest struct {
	ProviderMessageID string `json:"providerMessageId"`
	ProviderStatus    string `json:"providerStatus"`
	ErrorCode         string `json:"errorCode"`
	ErrorText         string `json:"errorText"`
}

// IngestStatus acknowledges every well-formed callback with 200 so the
// provider stops redelivering. Unknown message ids, duplicates, and stale
// reports are absorbed downstream; only a payload the service cannot even
// validate is rejected.
func (h *WebhookHandler) IngestStatus(c *fiber.Ctx) error {
	var req statusCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := h.webhooks.Ingest(c.Context(), service.StatusCallback{
		ProviderMessageID: req.ProviderMessageID,
		ProviderStatus:    req.ProviderStatus,
		ErrorCode:         req.ErrorCode,
		ErrorText:         req.ErrorText,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"acknowledged": true,
	})
}
