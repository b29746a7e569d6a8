package domain

import "time"

// AnalysisVariant enumerates the supported analysis subjects.
type AnalysisVariant string

const (
	VariantSolo   AnalysisVariant = "solo"
	VariantPaired AnalysisVariant = "paired"
)

// PhotoLimits returns the allowed photo count bounds for the variant.
func (v AnalysisVariant) PhotoLimits() (min, max int) {
	if v == VariantPaired {
		return 1, 2
	}
	return 1, 3
}

// Valid reports whether v is a known variant.
func (v AnalysisVariant) Valid() bool {
	return v == VariantSolo || v == VariantPaired
}

// AnalysisStatus enumerates record lifecycle states. Completed and Failed are
// terminal; a record never transitions again once it reaches either.
type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// AnalysisRequest is the admitted, immutable job payload. PhotoRefs are opaque
// platform file references in user-submitted order.
type AnalysisRequest struct {
	ID             string
	UserID         string
	PhotoRefs      []string
	ChatRef        int64
	ReplyTargetRef int
	Cost           int
	Variant        AnalysisVariant
}

// ValidatePhotoCount checks the photo count against the variant bounds.
func (r AnalysisRequest) ValidatePhotoCount() error {
	min, max := r.Variant.PhotoLimits()
	if len(r.PhotoRefs) < min || len(r.PhotoRefs) > max {
		return ErrPhotoCount
	}
	return nil
}

// AnalysisRecord is the persisted outcome for one request.
type AnalysisRecord struct {
	ID           string
	UserID       string
	Status       AnalysisStatus
	Variant      AnalysisVariant
	ResultText   string
	SummaryText  string
	CardImageRef string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
