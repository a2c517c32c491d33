package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements Store on top of PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to PostgreSQL and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = "id, tenant_id, email, password_hash, role, permissions, active, created_at"

func (s *PostgresStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		pq.Array(&user.Permissions),
		&user.Active,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return s.scanUser(row)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email)
	return s.scanUser(row)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, tenant_id, email, password_hash, role, permissions, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.TenantID, user.Email, user.PasswordHash,
		user.Role, pq.Array(user.Permissions), user.Active, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, id)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return requireRow(result)
}

const companyColumns = "id, tenant_id, name, domain, industry, created_at, updated_at"

func (s *PostgresStore) ListCompanies(ctx context.Context, tenantID string) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+companyColumns+" FROM companies WHERE tenant_id = $1 ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []*Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Domain, &c.Industry, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetCompany(ctx context.Context, tenantID, id string) (*Company, error) {
	var c Company
	err := s.db.QueryRowContext(ctx,
		"SELECT "+companyColumns+" FROM companies WHERE tenant_id = $1 AND id = $2", tenantID, id).
		Scan(&c.ID, &c.TenantID, &c.Name, &c.Domain, &c.Industry, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateCompany(ctx context.Context, company *Company) error {
	stampNew(&company.ID, &company.CreatedAt, &company.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, tenant_id, name, domain, industry, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		company.ID, company.TenantID, company.Name, company.Domain,
		company.Industry, company.CreatedAt, company.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateCompany(ctx context.Context, company *Company) error {
	company.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE companies SET name = $1, domain = $2, industry = $3, updated_at = $4
		 WHERE tenant_id = $5 AND id = $6`,
		company.Name, company.Domain, company.Industry, company.UpdatedAt,
		company.TenantID, company.ID)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteCompany(ctx context.Context, tenantID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM companies WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return requireRow(result)
}

const contactColumns = "id, tenant_id, company_id, first_name, last_name, email, phone, created_at, updated_at"

func (s *PostgresStore) ListContacts(ctx context.Context, tenantID string) ([]*Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE tenant_id = $1 ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []*Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.TenantID, &c.CompanyID, &c.FirstName, &c.LastName,
			&c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetContact(ctx context.Context, tenantID, id string) (*Contact, error) {
	var c Contact
	err := s.db.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE tenant_id = $1 AND id = $2", tenantID, id).
		Scan(&c.ID, &c.TenantID, &c.CompanyID, &c.FirstName, &c.LastName,
			&c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) CreateContact(ctx context.Context, contact *Contact) error {
	stampNew(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, tenant_id, company_id, first_name, last_name, email, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		contact.ID, contact.TenantID, contact.CompanyID, contact.FirstName,
		contact.LastName, contact.Email, contact.Phone, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, contact *Contact) error {
	contact.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET company_id = $1, first_name = $2, last_name = $3, email = $4, phone = $5, updated_at = $6
		 WHERE tenant_id = $7 AND id = $8`,
		contact.CompanyID, contact.FirstName, contact.LastName, contact.Email,
		contact.Phone, contact.UpdatedAt, contact.TenantID, contact.ID)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteContact(ctx context.Context, tenantID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM contacts WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return requireRow(result)
}

const opportunityColumns = "id, tenant_id, company_id, name, stage, amount, close_date, created_at, updated_at"

func (s *PostgresStore) ListOpportunities(ctx context.Context, tenantID string) ([]*Opportunity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+opportunityColumns+" FROM opportunities WHERE tenant_id = $1 ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	var out []*Opportunity
	for rows.Next() {
		var o Opportunity
		if err := rows.Scan(&o.ID, &o.TenantID, &o.CompanyID, &o.Name, &o.Stage,
			&o.Amount, &o.CloseDate, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetOpportunity(ctx context.Context, tenantID, id string) (*Opportunity, error) {
	var o Opportunity
	err := s.db.QueryRowContext(ctx,
		"SELECT "+opportunityColumns+" FROM opportunities WHERE tenant_id = $1 AND id = $2", tenantID, id).
		Scan(&o.ID, &o.TenantID, &o.CompanyID, &o.Name, &o.Stage,
			&o.Amount, &o.CloseDate, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) CreateOpportunity(ctx context.Context, opportunity *Opportunity) error {
	stampNew(&opportunity.ID, &opportunity.CreatedAt, &opportunity.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO opportunities (id, tenant_id, company_id, name, stage, amount, close_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		opportunity.ID, opportunity.TenantID, opportunity.CompanyID, opportunity.Name,
		opportunity.Stage, opportunity.Amount, opportunity.CloseDate,
		opportunity.CreatedAt, opportunity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateOpportunity(ctx context.Context, opportunity *Opportunity) error {
	opportunity.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE opportunities SET company_id = $1, name = $2, stage = $3, amount = $4, close_date = $5, updated_at = $6
		 WHERE tenant_id = $7 AND id = $8`,
		opportunity.CompanyID, opportunity.Name, opportunity.Stage, opportunity.Amount,
		opportunity.CloseDate, opportunity.UpdatedAt, opportunity.TenantID, opportunity.ID)
	if err != nil {
		return fmt.Errorf("update opportunity: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteOpportunity(ctx context.Context, tenantID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM opportunities WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("delete opportunity: %w", err)
	}
	return requireRow(result)
}

const activityColumns = "id, tenant_id, contact_id, opportunity_id, kind, subject, notes, due_at, completed, created_at, updated_at"

func (s *PostgresStore) ListActivities(ctx context.Context, tenantID string) ([]*Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE tenant_id = $1 ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ContactID, &a.OpportunityID, &a.Kind,
			&a.Subject, &a.Notes, &a.DueAt, &a.Completed, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetActivity(ctx context.Context, tenantID, id string) (*Activity, error) {
	var a Activity
	err := s.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE tenant_id = $1 AND id = $2", tenantID, id).
		Scan(&a.ID, &a.TenantID, &a.ContactID, &a.OpportunityID, &a.Kind,
			&a.Subject, &a.Notes, &a.DueAt, &a.Completed, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) CreateActivity(ctx context.Context, activity *Activity) error {
	stampNew(&activity.ID, &activity.CreatedAt, &activity.UpdatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, tenant_id, contact_id, opportunity_id, kind, subject, notes, due_at, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		activity.ID, activity.TenantID, activity.ContactID, activity.OpportunityID,
		activity.Kind, activity.Subject, activity.Notes, activity.DueAt,
		activity.Completed, activity.CreatedAt, activity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateActivity(ctx context.Context, activity *Activity) error {
	activity.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE activities SET contact_id = $1, opportunity_id = $2, kind = $3, subject = $4, notes = $5, due_at = $6, completed = $7, updated_at = $8
		 WHERE tenant_id = $9 AND id = $10`,
		activity.ContactID, activity.OpportunityID, activity.Kind, activity.Subject,
		activity.Notes, activity.DueAt, activity.Completed, activity.UpdatedAt,
		activity.TenantID, activity.ID)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) DeleteActivity(ctx context.Context, tenantID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM activities WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return requireRow(result)
}

// requireRow translates a zero-row write into ErrNotFound
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
