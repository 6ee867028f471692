package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// MemberRow is a member inserted by SeedMembers
type MemberRow struct {
	ID        int64
	CompanyID int64
	Name      string
	Email     string
	Role      string
}

// SeedMembers upserts members in one transaction. Membership is owned by an
// upstream directory; this only exists for local and demo setups.
func (db *DB) SeedMembers(members []MemberRow) error {
	if len(members) == 0 {
		return nil
	}

	err := db.WithTransaction(func(tx *sql.Tx) error {
		for _, m := range members {
			_, err := tx.Exec(`
				INSERT INTO members (id, company_id, name, email, role)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					company_id = excluded.company_id,
					name = excluded.name,
					email = excluded.email,
					role = excluded.role`,
				m.ID, m.CompanyID, m.Name, m.Email, m.Role)
			if err != nil {
				return fmt.Errorf("failed to seed member %d: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.Info("Members seeded", zap.Int("count", len(members)))
	return nil
}
