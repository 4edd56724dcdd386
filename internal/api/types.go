package api

import "elizabeth/agent/internal/domain"

// Tokens is the JWT pair returned by the auth endpoints.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

type AuthResponse struct {
	Tokens Tokens `json:"tokens"`
	User   User   `json:"user"`
}

// Profile is the /auth/me payload: account data plus UI settings.
type Profile struct {
	ID       int64          `json:"id"`
	Email    string         `json:"email"`
	Username string         `json:"username,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// ArmtekCredentials is the stored third-party portal login.
type ArmtekCredentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SearchRequestInfo identifies a server-side search request.
type SearchRequestInfo struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// SearchProduct is the wire shape of one product row returned by search.
type SearchProduct struct {
	ID       int64    `json:"id"`
	ArtID    string   `json:"artid"`
	Brand    string   `json:"brand"`
	Pin      string   `json:"pin"`
	Name     string   `json:"name"`
	Quantity *int     `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`

	// Present when a detail job was already assigned at search time.
	RequestID     string                  `json:"request_id,omitempty"`
	DetailsStatus string                  `json:"details_status,omitempty"`
	Details       *domain.Characteristics `json:"details,omitempty"`
}

// ToDomain maps a wire row onto the in-memory product model. Rows without an
// assigned correlation id start idle.
func (p SearchProduct) ToDomain() domain.Product {
	status := domain.DetailsStatus(p.DetailsStatus)
	if status == "" {
		status = domain.StatusIdle
	}
	return domain.Product{
		ID:              p.ID,
		ArtID:           p.ArtID,
		Brand:           p.Brand,
		Pin:             p.Pin,
		Name:            p.Name,
		Quantity:        p.Quantity,
		Price:           p.Price,
		Currency:        p.Currency,
		CorrelationID:   p.RequestID,
		DetailsStatus:   status,
		Characteristics: p.Details,
	}
}

type SearchResponse struct {
	Request  SearchRequestInfo `json:"request"`
	Products []SearchProduct   `json:"products"`
}

// CreatedJob is one entry of the request-details response.
type CreatedJob struct {
	ProductID     int64  `json:"product_id"`
	CorrelationID string `json:"request_id"`
	Status        string `json:"status"`
	ArtID         string `json:"artid"`
}

// DetailsRequestInfo is the correlation record attached to a row snapshot.
type DetailsRequestInfo struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	LastError string `json:"last_error,omitempty"`
}

// RowSnapshot is one row of the batch status-poll response.
type RowSnapshot struct {
	ID             int64                   `json:"id"`
	ArtID          string                  `json:"artid"`
	Brand          string                  `json:"brand"`
	Pin            string                  `json:"pin"`
	Name           string                  `json:"name"`
	DetailsRequest *DetailsRequestInfo     `json:"details_request,omitempty"`
	Details        *domain.Characteristics `json:"details,omitempty"`
}

// Detail request states reported by the backend.
const (
	RequestStatusPending = "pending"
	RequestStatusReady   = "ready"
	RequestStatusFailed  = "failed"
)
