package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
)

const alumniColumns = `id, role, user_role, status, full_name, email, mobile, hall_ticket, blood_group, profession, profession_other, organisation_name, work_role, school, photo_url, joined_year, passed_out_year, joined_class, passed_out_class, current_city, current_state, work_city, work_state, supported_by, approved_by, approved_at, donation_amount, transaction_id, donation_details, created_at, updated_at`

// AlumniRepository persists alumni records. Every record read is passed through Normalize.
type AlumniRepository struct {
	db *sqlx.DB
}

// NewAlumniRepository constructs the repository.
func NewAlumniRepository(db *sqlx.DB) *AlumniRepository {
	return &AlumniRepository{db: db}
}

// Register inserts the account and its pending record in one transaction.
// Unique violations come back as ErrEmailTaken or ErrHallTicketTaken.
func (r *AlumniRepository) Register(ctx context.Context, account *models.Account, record *models.AlumniRecord) (err error) {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.SupportedBy == nil {
		record.SupportedBy = pq.StringArray{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertAccount = `INSERT INTO users (id, email, password_hash, photo_url, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :photo_url, :active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertAccount, account); err != nil {
		if dup := uniqueViolationError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create account: %w", err)
	}

	const insertRecord = `INSERT INTO alumni_records (id, role, user_role, status, full_name, email, mobile, hall_ticket, blood_group, profession, profession_other, organisation_name, work_role, school, photo_url, joined_year, passed_out_year, joined_class, passed_out_class, current_city, current_state, work_city, work_state, supported_by, donation_amount, transaction_id, donation_details, created_at, updated_at) VALUES (:id, :role, :user_role, :status, :full_name, :email, :mobile, :hall_ticket, :blood_group, :profession, :profession_other, :organisation_name, :work_role, :school, :photo_url, :joined_year, :passed_out_year, :joined_class, :passed_out_class, :current_city, :current_state, :work_city, :work_state, :supported_by, :donation_amount, :transaction_id, :donation_details, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertRecord, record); err != nil {
		if dup := uniqueViolationError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("create alumni record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit register: %w", err)
	}
	return nil
}

// FindByID returns a record; sql.ErrNoRows is passed through unwrapped.
func (r *AlumniRepository) FindByID(ctx context.Context, id string) (*models.AlumniRecord, error) {
	query := `SELECT ` + alumniColumns + ` FROM alumni_records WHERE id = $1 LIMIT 1`
	var record models.AlumniRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find alumni record: %w", err)
	}
	record.Normalize()
	return &record, nil
}

// FindByIDs returns the records that exist among ids, in no particular order.
func (r *AlumniRepository) FindByIDs(ctx context.Context, ids []string) ([]models.AlumniRecord, error) {
	if len(ids) == 0 {
		return []models.AlumniRecord{}, nil
	}
	query := `SELECT ` + alumniColumns + ` FROM alumni_records WHERE id = ANY($1)`
	var records []models.AlumniRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find alumni records: %w", err)
	}
	normalizeAll(records)
	return records, nil
}

// ExistsByHallTicket reports whether a record already uses the hall ticket.
func (r *AlumniRepository) ExistsByHallTicket(ctx context.Context, hallTicket string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM alumni_records WHERE hall_ticket = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, hallTicket); err != nil {
		return false, fmt.Errorf("check hall ticket: %w", err)
	}
	return exists, nil
}

// ExistsByEmail reports whether an account or a record already uses the email.
func (r *AlumniRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1) OR EXISTS(SELECT 1 FROM alumni_records WHERE email = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// ListAll returns every record, oldest first.
func (r *AlumniRepository) ListAll(ctx context.Context) ([]models.AlumniRecord, error) {
	query := `SELECT ` + alumniColumns + ` FROM alumni_records ORDER BY created_at ASC`
	var records []models.AlumniRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list alumni records: %w", err)
	}
	normalizeAll(records)
	return records, nil
}

// AddSupporter appends supporterID to a pending record's supporters.
// It returns false when nothing changed: the supporter was already present or the record is not pending.
func (r *AlumniRepository) AddSupporter(ctx context.Context, id, supporterID string, at time.Time) (bool, error) {
	const query = `UPDATE alumni_records SET supported_by = array_append(supported_by, $2), updated_at = $3 WHERE id = $1 AND status = 'pending' AND NOT ($2 = ANY(supported_by))`
	res, err := r.db.ExecContext(ctx, query, id, supporterID, at)
	if err != nil {
		return false, fmt.Errorf("add supporter: %w", err)
	}
	return rowsChanged(res, "add supporter")
}

// Older rows kept privilege names in the role column. Writes that touch a row fold
// them into user_role and leave role as alumni or teacher, matching AlumniRecord.Normalize.
const (
	canonicalCategorySQL = `(CASE WHEN lower(trim(role)) IN ('alumni', 'teacher') THEN lower(trim(role)) ELSE 'alumni' END)`
	effectiveUserRoleSQL = `(CASE lower(trim(role)) WHEN 'admin' THEN 'Admin' WHEN 'governing_body' THEN 'Governing_body' WHEN 'treasurer' THEN 'Treasurer' WHEN 'verification_committee' THEN 'Verification_committee' ELSE user_role END)`
	elevatedRolesSQL     = `('alumni', 'teacher', 'governing_body', 'treasurer', 'verification_committee', 'admin')`
)

// Approve moves a pending record to approved and promotes a plain User to promoted.
// It returns false when the record was not pending.
func (r *AlumniRepository) Approve(ctx context.Context, id, approverID string, promoted models.UserRole, at time.Time) (bool, error) {
	query := `UPDATE alumni_records SET status = 'approved', approved_by = $2, approved_at = $3, role = ` + canonicalCategorySQL +
		`, user_role = CASE WHEN lower(trim(coalesce(` + effectiveUserRoleSQL + `, ''))) IN ` + elevatedRolesSQL + ` THEN ` + effectiveUserRoleSQL +
		` ELSE $4 END, updated_at = $3 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, approverID, at, string(promoted))
	if err != nil {
		return false, fmt.Errorf("approve alumni record: %w", err)
	}
	return rowsChanged(res, "approve alumni record")
}

// UpdateProfile writes the owner-editable fields only.
func (r *AlumniRepository) UpdateProfile(ctx context.Context, record *models.AlumniRecord) error {
	record.UpdatedAt = time.Now().UTC()
	query := `UPDATE alumni_records SET role = ` + canonicalCategorySQL + `, user_role = ` + effectiveUserRoleSQL + `, full_name = :full_name, mobile = :mobile, blood_group = :blood_group, profession = :profession, profession_other = :profession_other, organisation_name = :organisation_name, work_role = :work_role, school = :school, current_city = :current_city, current_state = :current_state, work_city = :work_city, work_state = :work_state, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update alumni profile: %w", err)
	}
	changed, err := rowsChanged(res, "update alumni profile")
	if err != nil {
		return err
	}
	if !changed {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateDonation records donation metadata.
func (r *AlumniRepository) UpdateDonation(ctx context.Context, id string, amount float64, transactionID, details string, at time.Time) error {
	const query = `UPDATE alumni_records SET donation_amount = $2, transaction_id = $3, donation_details = $4, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, amount, transactionID, details, at)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	changed, err := rowsChanged(res, "update donation")
	if err != nil {
		return err
	}
	if !changed {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateUserRole overwrites the privilege level of a record.
func (r *AlumniRepository) UpdateUserRole(ctx context.Context, id string, role models.UserRole, at time.Time) error {
	query := `UPDATE alumni_records SET user_role = $2, role = ` + canonicalCategorySQL + `, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(role), at)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	changed, err := rowsChanged(res, "update user role")
	if err != nil {
		return err
	}
	if !changed {
		return sql.ErrNoRows
	}
	return nil
}

func rowsChanged(res sql.Result, op string) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

func normalizeAll(records []models.AlumniRecord) {
	for i := range records {
		records[i].Normalize()
	}
}
