// File: internal/booking/model.go
package booking

import (
	"time"

	"quickfix_backend/internal/store"
)

// Status is the lifecycle state of a booking. The lifecycle only moves
// forward: pending → accepted → completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted:
		return true
	}
	return false
}

// CanAdvanceTo reports whether next is a legal forward step from s.
// There are exactly two legal edges; everything else (skips, repeats,
// backward moves) is rejected.
func (s Status) CanAdvanceTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted
	case StatusAccepted:
		return next == StatusCompleted
	}
	return false
}

// Booking is a service request between a customer and a provider.
// ProviderName and UserName are denormalized display snapshots taken at
// creation time; they never change afterwards even if the underlying
// profile does.
type Booking struct {
	ID               string    `json:"id"`
	ProviderID       string    `json:"provider_id"`
	ProviderName     string    `json:"provider_name"`
	UserID           string    `json:"user_id"`
	UserName         string    `json:"user_name"`
	ServiceDate      string    `json:"service_date"`
	PreferredTime    string    `json:"preferred_time"`
	IssueDescription string    `json:"issue_description"`
	ContactNumber    string    `json:"contact_number"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Field names in the store.
const (
	fieldProviderID       = "providerId"
	fieldProviderName     = "providerName"
	fieldUserID           = "userId"
	fieldUserName         = "userName"
	fieldServiceDate      = "serviceDate"
	fieldPreferredTime    = "preferredTime"
	fieldIssueDescription = "issueDescription"
	fieldContactNumber    = "contactNumber"
	fieldStatus           = "status"
	fieldCreatedAt        = "createdAt"
)

func (b *Booking) toFields() map[string]interface{} {
	return map[string]interface{}{
		fieldProviderID:       b.ProviderID,
		fieldProviderName:     b.ProviderName,
		fieldUserID:           b.UserID,
		fieldUserName:         b.UserName,
		fieldServiceDate:      b.ServiceDate,
		fieldPreferredTime:    b.PreferredTime,
		fieldIssueDescription: b.IssueDescription,
		fieldContactNumber:    b.ContactNumber,
		fieldStatus:           string(b.Status),
		fieldCreatedAt:        b.CreatedAt,
	}
}

func bookingFromDocument(doc store.Document) *Booking {
	return &Booking{
		ID:               doc.ID,
		ProviderID:       doc.Str(fieldProviderID),
		ProviderName:     doc.Str(fieldProviderName),
		UserID:           doc.Str(fieldUserID),
		UserName:         doc.Str(fieldUserName),
		ServiceDate:      doc.Str(fieldServiceDate),
		PreferredTime:    doc.Str(fieldPreferredTime),
		IssueDescription: doc.Str(fieldIssueDescription),
		ContactNumber:    doc.Str(fieldContactNumber),
		Status:           Status(doc.Str(fieldStatus)),
		CreatedAt:        doc.Time(fieldCreatedAt),
	}
}

// --- DTOs ---

// CreateBookingRequest captures the booking form submitted by a customer.
type CreateBookingRequest struct {
	ProviderID       string `json:"provider_id" binding:"required"`
	ServiceDate      string `json:"service_date" binding:"required,datetime=2006-01-02"`
	PreferredTime    string `json:"preferred_time" binding:"required,datetime=15:04"`
	IssueDescription string `json:"issue_description" binding:"required,max=2000"`
	ContactNumber    string `json:"contact_number" binding:"required,max=50"`
}

// TransitionRequest asks to advance a booking to the next lifecycle state.
type TransitionRequest struct {
	Status Status `json:"status" binding:"required,oneof=accepted completed"`
}
