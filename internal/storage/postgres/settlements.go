package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/internal/storage"
)

// CreateSettlement persists a new settlement to the database.
func (s *PostgresStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = storage.NewID()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	if settlement.Date == 0 {
		settlement.Date = settlement.CreatedAt
	}

	note := sql.NullString{String: settlement.Note, Valid: settlement.Note != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, from_user_id, to_user_id, amount, note, date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		settlement.ID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount, note, settlement.Date, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// ListSettlementsInvolving retrieves settlements the user sent or received, newest first.
func (s *PostgresStore) ListSettlementsInvolving(ctx context.Context, userID string, limit int) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_user_id, to_user_id, amount, note, date, created_at
		 FROM settlements WHERE from_user_id = $1 OR to_user_id = $1
		 ORDER BY date DESC, created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var note sql.NullString
		if err := rows.Scan(&settlement.ID, &settlement.FromUserID, &settlement.ToUserID,
			&settlement.Amount, &note, &settlement.Date, &settlement.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlement.Note = note.String
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}
