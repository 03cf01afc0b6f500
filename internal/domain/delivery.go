package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind represents the message kind of an outbound delivery.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindBroadcast    Kind = "broadcast"
	KindFeedback     Kind = "feedback"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case KindConfirmation, KindBroadcast, KindFeedback:
		return true
	}
	return false
}

func ParseKindFromString(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid kind %q", ErrValidation, s)
	}
	return k, nil
}

// Status represents the lifecycle state of a delivery record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may ever be applied.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// CanTransition reports whether the delivery state machine allows from -> to.
// Allowed moves: pending->sent, pending->failed, sent->delivered, sent->failed.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusSent || to == StatusFailed
	case StatusSent:
		return to == StatusDelivered || to == StatusFailed
	}
	return false
}

// Correlation ties a delivery back to the booking flow that requested it.
type Correlation struct {
	EventID   *string
	BookingID *string
}

// DeliveryRecord is the durable, per-message record of a notification's
// progress through its lifecycle. Records are never deleted.
type DeliveryRecord struct {
	ID                string
	Kind              Kind
	EventID           *string
	BookingID         *string
	Recipient         string
	RecipientName     string
	Status            Status
	ProviderMessageID *string
	ErrorText         *string
	TemplateMetadata  map[string]string
	SentAt            *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r *DeliveryRecord) Validate() error {
	if strings.TrimSpace(r.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: invalid kind %q", ErrValidation, r.Kind)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	if r.Kind == KindConfirmation && (r.EventID == nil || strings.TrimSpace(*r.EventID) == "") {
		return fmt.Errorf("%w: confirmation requires an event id", ErrValidation)
	}
	return nil
}
