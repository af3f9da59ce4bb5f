// File: internal/provider/model.go
package provider

import (
	"time"

	"quickfix_backend/internal/store"
)

// Profile is a service provider's public profile, stored in the remote
// document store under the providers collection.
type Profile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Category        string    `json:"category"`
	Location        string    `json:"location"`
	ExperienceYears int       `json:"experience_years"`
	Description     string    `json:"description"`
	Slug            string    `json:"slug"`
	CreatedAt       time.Time `json:"created_at"`
}

// Field names in the store. "experience" is an integer count of years.
const (
	fieldUserID      = "userId"
	fieldName        = "name"
	fieldPhone       = "phone"
	fieldCategory    = "category"
	fieldLocation    = "location"
	fieldExperience  = "experience"
	fieldDescription = "description"
	fieldSlug        = "slug"
	fieldCreatedAt   = "createdAt"
)

// toFields converts the profile to its store representation. The id is the
// document id and is not duplicated into the field map.
func (p *Profile) toFields() map[string]interface{} {
	return map[string]interface{}{
		fieldUserID:      p.UserID,
		fieldName:        p.Name,
		fieldPhone:       p.Phone,
		fieldCategory:    p.Category,
		fieldLocation:    p.Location,
		fieldExperience:  p.ExperienceYears,
		fieldDescription: p.Description,
		fieldSlug:        p.Slug,
		fieldCreatedAt:   p.CreatedAt,
	}
}

func profileFromDocument(doc store.Document) *Profile {
	return &Profile{
		ID:              doc.ID,
		UserID:          doc.Str(fieldUserID),
		Name:            doc.Str(fieldName),
		Phone:           doc.Str(fieldPhone),
		Category:        doc.Str(fieldCategory),
		Location:        doc.Str(fieldLocation),
		ExperienceYears: doc.Int(fieldExperience),
		Description:     doc.Str(fieldDescription),
		Slug:            doc.Str(fieldSlug),
		CreatedAt:       doc.Time(fieldCreatedAt),
	}
}

// --- DTOs ---

// RegisterProviderRequest captures the become-a-provider form.
type RegisterProviderRequest struct {
	Name            string `json:"name" binding:"required,max=150"`
	Phone           string `json:"phone" binding:"required,max=50"`
	Category        string `json:"category" binding:"required,max=100"`
	Location        string `json:"location" binding:"required,max=150"`
	ExperienceYears int    `json:"experience_years" binding:"gte=0"`
	Description     string `json:"description" binding:"required,max=2000"`
}

// SearchQuery filters the provider directory.
type SearchQuery struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,max=100"`
}
