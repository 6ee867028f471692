package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/founderstab/founders-tab/internal/application/port"
	"github.com/founderstab/founders-tab/internal/domain/entity"
	"github.com/founderstab/founders-tab/internal/domain/workflow"
	"github.com/founderstab/founders-tab/internal/infrastructure/persistence/sqlite"
)

// MemberRepository implements port.MemberRepository
type MemberRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB, logger *zap.Logger) port.MemberRepository {
	return &MemberRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a member, or nil when unknown
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*entity.Member, error) {
	query := `SELECT id, company_id, name, email, role FROM members WHERE id = ?`

	var m entity.Member
	var role string
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.CompanyID, &m.Name, &m.Email, &role,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get member by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	m.Role = workflow.Role(role)
	return &m, nil
}

// GetByCompanyID lists all members of a company
func (r *MemberRepository) GetByCompanyID(ctx context.Context, companyID int64) ([]*entity.Member, error) {
	query := `SELECT id, company_id, name, email, role FROM members WHERE company_id = ? ORDER BY id`
	return r.list(ctx, query, companyID)
}

// GetFounders lists the current founders of a company
func (r *MemberRepository) GetFounders(ctx context.Context, companyID int64) ([]*entity.Member, error) {
	query := `SELECT id, company_id, name, email, role FROM members WHERE company_id = ? AND role = ? ORDER BY id`
	return r.list(ctx, query, companyID, string(workflow.RoleFounder))
}

func (r *MemberRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Member, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list members", zap.Error(err))
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*entity.Member
	for rows.Next() {
		var m entity.Member
		var role string
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.Name, &m.Email, &role); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Role = workflow.Role(role)
		members = append(members, &m)
	}
	return members, rows.Err()
}

var _ port.MemberRepository = (*MemberRepository)(nil)
