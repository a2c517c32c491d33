package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist or belongs to a
// different tenant.
var ErrNotFound = errors.New("record not found")

// User is an account that can authenticate against the API
type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Company is a CRM account record
type Company struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contact is a person attached to a company
type Contact struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CompanyID string    `json:"company_id,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Opportunity is a potential deal in the pipeline
type Opportunity struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	CompanyID string     `json:"company_id,omitempty"`
	Name      string     `json:"name"`
	Stage     string     `json:"stage"`
	Amount    float64    `json:"amount"`
	CloseDate *time.Time `json:"close_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Activity is a task, call or note attached to a contact or deal
type Activity struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	ContactID     string     `json:"contact_id,omitempty"`
	OpportunityID string     `json:"opportunity_id,omitempty"`
	Kind          string     `json:"kind"`
	Subject       string     `json:"subject"`
	Notes         string     `json:"notes,omitempty"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	Completed     bool       `json:"completed"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// UserStore looks up and maintains user accounts
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
}

// CompanyStore maintains company records
type CompanyStore interface {
	ListCompanies(ctx context.Context, tenantID string) ([]*Company, error)
	GetCompany(ctx context.Context, tenantID, id string) (*Company, error)
	CreateCompany(ctx context.Context, company *Company) error
	UpdateCompany(ctx context.Context, company *Company) error
	DeleteCompany(ctx context.Context, tenantID, id string) error
}

// ContactStore maintains contact records
type ContactStore interface {
	ListContacts(ctx context.Context, tenantID string) ([]*Contact, error)
	GetContact(ctx context.Context, tenantID, id string) (*Contact, error)
	CreateContact(ctx context.Context, contact *Contact) error
	UpdateContact(ctx context.Context, contact *Contact) error
	DeleteContact(ctx context.Context, tenantID, id string) error
}

// OpportunityStore maintains opportunity records
type OpportunityStore interface {
	ListOpportunities(ctx context.Context, tenantID string) ([]*Opportunity, error)
	GetOpportunity(ctx context.Context, tenantID, id string) (*Opportunity, error)
	CreateOpportunity(ctx context.Context, opportunity *Opportunity) error
	UpdateOpportunity(ctx context.Context, opportunity *Opportunity) error
	DeleteOpportunity(ctx context.Context, tenantID, id string) error
}

// ActivityStore maintains activity records
type ActivityStore interface {
	ListActivities(ctx context.Context, tenantID string) ([]*Activity, error)
	GetActivity(ctx context.Context, tenantID, id string) (*Activity, error)
	CreateActivity(ctx context.Context, activity *Activity) error
	UpdateActivity(ctx context.Context, activity *Activity) error
	DeleteActivity(ctx context.Context, tenantID, id string) error
}

// Store aggregates every persistence concern of the backend
type Store interface {
	UserStore
	CompanyStore
	ContactStore
	OpportunityStore
	ActivityStore
}
