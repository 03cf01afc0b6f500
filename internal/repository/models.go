package repository

import (
	"time"

	"github.com/venuegate/courier/internal/domain"
)

// DeliveryRecordModel is the persistence model for the delivery_records table.
type DeliveryRecordModel struct {
	ID                string            `gorm:"type:uuid;primaryKey"`
	Kind              domain.Kind       `gorm:"type:varchar(20);not null"`
	EventID           *string           `gorm:"type:varchar(64);index"`
	BookingID         *string           `gorm:"type:varchar(64)"`
	Recipient         string            `gorm:"type:varchar(32);not null"`
	RecipientName     string            `gorm:"type:varchar(255)"`
	Status            domain.Status     `gorm:"type:varchar(20);not null"`
	ProviderMessageID *string           `gorm:"type:varchar(255);uniqueIndex"`
	ErrorText         *string           `gorm:"type:text"`
	TemplateMetadata  map[string]string `gorm:"serializer:json;type:jsonb"`
	SentAt            *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (DeliveryRecordModel) TableName() string {
	return "delivery_records"
}

// CustomerModel maps the collaborator-owned customers table. This core only
// reads it; the booking service owns the schema.
type CustomerModel struct {
	Phone        string    `gorm:"type:varchar(32);primaryKey"`
	Name         string    `gorm:"type:varchar(255)"`
	OptIn        bool      `gorm:"not null;default:true"`
	Role         string    `gorm:"type:varchar(32)"`
	LastActiveAt time.Time `gorm:"type:timestamptz"`
}

func (CustomerModel) TableName() string {
	return "customers"
}

func deliveryModelFromDomain(r *domain.DeliveryRecord) *DeliveryRecordModel {
	if r == nil {
		return nil
	}

	return &DeliveryRecordModel{
		ID:                r.ID,
		Kind:              r.Kind,
		EventID:           r.EventID,
		BookingID:         r.BookingID,
		Recipient:         r.Recipient,
		RecipientName:     r.RecipientName,
		Status:            r.Status,
		ProviderMessageID: r.ProviderMessageID,
		ErrorText:         r.ErrorText,
		TemplateMetadata:  r.TemplateMetadata,
		SentAt:            r.SentAt,
		DeliveredAt:       r.DeliveredAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func deliveryModelToDomain(m *DeliveryRecordModel) *domain.DeliveryRecord {
	if m == nil {
		return nil
	}

	return &domain.DeliveryRecord{
		ID:                m.ID,
		Kind:              m.Kind,
		EventID:           m.EventID,
		BookingID:         m.BookingID,
		Recipient:         m.Recipient,
		RecipientName:     m.RecipientName,
		Status:            m.Status,
		ProviderMessageID: m.ProviderMessageID,
		ErrorText:         m.ErrorText,
		TemplateMetadata:  m.TemplateMetadata,
		SentAt:            m.SentAt,
		DeliveredAt:       m.DeliveredAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func customerModelToDomain(m *CustomerModel) *domain.Recipient {
	if m == nil {
		return nil
	}

	return &domain.Recipient{
		Phone:        m.Phone,
		Name:         m.Name,
		OptIn:        m.OptIn,
		Role:         m.Role,
		LastActiveAt: m.LastActiveAt,
	}
}
