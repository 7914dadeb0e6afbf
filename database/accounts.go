package database

import (
	"context"
	"fmt"

	"incident-reporter/models"
)

// AdminIDs returns the ids of every admin account. The fan-out engine
// notifies all of them on report creation.
func (d *Database) AdminIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM accounts WHERE role = 'admin'`)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan admin id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListResponders returns the responder accounts for the submission
// picker.
func (d *Database) ListResponders(ctx context.Context) ([]models.Account, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name, email, role FROM accounts WHERE role = 'responder' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query responder accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.Name, &account.Email, &account.Role); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
