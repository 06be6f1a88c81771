package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
	"github.com/polargamesbr/rpg-sub006/internal/engine/storage"
)

// GetCharacterBaseline loads the trusted stat row for a character.
func (s *Store) GetCharacterBaseline(ctx context.Context, characterID int64) (domain.CharacterBaseline, error) {
	var baseline domain.CharacterBaseline
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, max_hp, max_mana, move_range
FROM characters
WHERE id = ?`, characterID)
	err := row.Scan(
		&baseline.CharacterID,
		&baseline.Name,
		&baseline.MaxHP,
		&baseline.MaxMana,
		&baseline.MoveRange,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CharacterBaseline{}, storage.ErrCharacterNotFound
		}
		return domain.CharacterBaseline{}, fmt.Errorf("scan character baseline: %w", err)
	}
	return baseline, nil
}

// PutCharacterBaseline upserts a character stat row. The engine itself only
// reads baselines; this write path exists for seeding and tests.
func (s *Store) PutCharacterBaseline(ctx context.Context, baseline domain.CharacterBaseline) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO characters (id, name, max_hp, max_mana, move_range)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    max_hp = excluded.max_hp,
    max_mana = excluded.max_mana,
    move_range = excluded.move_range`,
		baseline.CharacterID,
		baseline.Name,
		baseline.MaxHP,
		baseline.MaxMana,
		baseline.MoveRange,
	)
	if err != nil {
		return fmt.Errorf("upsert character baseline: %w", err)
	}
	return nil
}
