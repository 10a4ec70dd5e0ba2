// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"invoicedesk/internal/core/numerator"
)

// InsertResponse acknowledges a created document.
type InsertResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// NewInsertResponse creates an insert acknowledgement.
func NewInsertResponse(id string) InsertResponse {
	return InsertResponse{Acknowledged: true, InsertedID: id}
}

// InvoiceCreatedResponse also reports the number the invoice was stamped with.
type InvoiceCreatedResponse struct {
	InsertResponse
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Sequence      int64  `json:"sequence,omitempty"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SequenceRequest is the optional body of POST /api/meta_data.
type SequenceRequest struct {
	Increment bool `json:"increment"`
}

// SequenceResponse reports an invoice sequence value.
type SequenceResponse struct {
	LastInvoiceSequence int64 `json:"last_invoice_sequence"`
}

// MetaDataResponse is the stored counter document.
type MetaDataResponse struct {
	ID                  string `json:"_id,omitempty"`
	LastInvoiceSequence int64  `json:"last_invoice_sequence"`
}

// FromRecord maps the counter record.
func FromRecord(r numerator.Record) MetaDataResponse {
	return MetaDataResponse{ID: r.ID, LastInvoiceSequence: r.LastSequence}
}
