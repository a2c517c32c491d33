package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for development and tests. All
// maps are guarded by a single RWMutex; this store is not meant for
// multi-instance deployments.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*User
	companies     map[string]*Company
	contacts      map[string]*Contact
	opportunities map[string]*Opportunity
	activities    map[string]*Activity
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*User),
		companies:     make(map[string]*Company),
		contacts:      make(map[string]*Contact),
		opportunities: make(map[string]*Opportunity),
		activities:    make(map[string]*Activity),
	}
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *MemoryStore) ListCompanies(ctx context.Context, tenantID string) ([]*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Company
	for _, company := range s.companies {
		if company.TenantID == tenantID {
			copied := *company
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetCompany(ctx context.Context, tenantID, id string) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, ok := s.companies[id]
	if !ok || company.TenantID != tenantID {
		return nil, ErrNotFound
	}
	copied := *company
	return &copied, nil
}

func (s *MemoryStore) CreateCompany(ctx context.Context, company *Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&company.ID, &company.CreatedAt, &company.UpdatedAt)
	copied := *company
	s.companies[company.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateCompany(ctx context.Context, company *Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.companies[company.ID]
	if !ok || existing.TenantID != company.TenantID {
		return ErrNotFound
	}
	company.CreatedAt = existing.CreatedAt
	company.UpdatedAt = time.Now().UTC()
	copied := *company
	s.companies[company.ID] = &copied
	return nil
}

func (s *MemoryStore) DeleteCompany(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.companies[id]
	if !ok || company.TenantID != tenantID {
		return ErrNotFound
	}
	delete(s.companies, id)
	return nil
}

func (s *MemoryStore) ListContacts(ctx context.Context, tenantID string) ([]*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Contact
	for _, contact := range s.contacts {
		if contact.TenantID == tenantID {
			copied := *contact
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetContact(ctx context.Context, tenantID, id string) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[id]
	if !ok || contact.TenantID != tenantID {
		return nil, ErrNotFound
	}
	copied := *contact
	return &copied, nil
}

func (s *MemoryStore) CreateContact(ctx context.Context, contact *Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)
	copied := *contact
	s.contacts[contact.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateContact(ctx context.Context, contact *Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[contact.ID]
	if !ok || existing.TenantID != contact.TenantID {
		return ErrNotFound
	}
	contact.CreatedAt = existing.CreatedAt
	contact.UpdatedAt = time.Now().UTC()
	copied := *contact
	s.contacts[contact.ID] = &copied
	return nil
}

func (s *MemoryStore) DeleteContact(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[id]
	if !ok || contact.TenantID != tenantID {
		return ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *MemoryStore) ListOpportunities(ctx context.Context, tenantID string) ([]*Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Opportunity
	for _, opportunity := range s.opportunities {
		if opportunity.TenantID == tenantID {
			copied := *opportunity
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetOpportunity(ctx context.Context, tenantID, id string) (*Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opportunity, ok := s.opportunities[id]
	if !ok || opportunity.TenantID != tenantID {
		return nil, ErrNotFound
	}
	copied := *opportunity
	return &copied, nil
}

func (s *MemoryStore) CreateOpportunity(ctx context.Context, opportunity *Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&opportunity.ID, &opportunity.CreatedAt, &opportunity.UpdatedAt)
	copied := *opportunity
	s.opportunities[opportunity.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateOpportunity(ctx context.Context, opportunity *Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.opportunities[opportunity.ID]
	if !ok || existing.TenantID != opportunity.TenantID {
		return ErrNotFound
	}
	opportunity.CreatedAt = existing.CreatedAt
	opportunity.UpdatedAt = time.Now().UTC()
	copied := *opportunity
	s.opportunities[opportunity.ID] = &copied
	return nil
}

func (s *MemoryStore) DeleteOpportunity(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opportunity, ok := s.opportunities[id]
	if !ok || opportunity.TenantID != tenantID {
		return ErrNotFound
	}
	delete(s.opportunities, id)
	return nil
}

func (s *MemoryStore) ListActivities(ctx context.Context, tenantID string) ([]*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Activity
	for _, activity := range s.activities {
		if activity.TenantID == tenantID {
			copied := *activity
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetActivity(ctx context.Context, tenantID, id string) (*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	activity, ok := s.activities[id]
	if !ok || activity.TenantID != tenantID {
		return nil, ErrNotFound
	}
	copied := *activity
	return &copied, nil
}

func (s *MemoryStore) CreateActivity(ctx context.Context, activity *Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stampNew(&activity.ID, &activity.CreatedAt, &activity.UpdatedAt)
	copied := *activity
	s.activities[activity.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateActivity(ctx context.Context, activity *Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.activities[activity.ID]
	if !ok || existing.TenantID != activity.TenantID {
		return ErrNotFound
	}
	activity.CreatedAt = existing.CreatedAt
	activity.UpdatedAt = time.Now().UTC()
	copied := *activity
	s.activities[activity.ID] = &copied
	return nil
}

func (s *MemoryStore) DeleteActivity(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[id]
	if !ok || activity.TenantID != tenantID {
		return ErrNotFound
	}
	delete(s.activities, id)
	return nil
}

// stampNew fills in the id and timestamps for a freshly created record
func stampNew(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}
