package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/campus/internal/domain"
)

type profileRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Email       string `db:"email"`
	AvatarURL   string `db:"avatar_url"`
	InstituteID string `db:"institute_id"`
}

func (r profileRow) toDomain(role domain.Role) domain.Profile {
	return domain.Profile{
		Identity:    domain.Identity{ID: r.ID, Role: role},
		Name:        r.Name,
		Email:       r.Email,
		AvatarURL:   r.AvatarURL,
		InstituteID: r.InstituteID,
	}
}

// UpsertProfile inserts or updates a profile in the collection of its role.
func (db *DB) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	table, err := p.Role.Collection()
	if err != nil {
		return err
	}
	_, err = db.exec(ctx, db, `
		INSERT INTO `+table+` (id, name, email, avatar_url, institute_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			avatar_url = excluded.avatar_url,
			institute_id = excluded.institute_id,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Email, p.AvatarURL, p.InstituteID, millis(time.Now()))
	return err
}

// GetProfile returns the profile of id from its role collection.
func (db *DB) GetProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	table, err := id.Role.Collection()
	if err != nil {
		return nil, err
	}
	var row profileRow
	err = db.get(ctx, db, &row, `SELECT id, name, email, avatar_url, institute_id FROM `+table+` WHERE id = ?`, id.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	p := row.toDomain(id.Role)
	return &p, nil
}

// SearchProfiles matches query against names and emails in the given role
// collections (all roles when none are given).
func (db *DB) SearchProfiles(ctx context.Context, query string, roles []domain.Role, limit int) ([]domain.Profile, error) {
	if limit <= 0 {
		limit = 20
	}
	if len(roles) == 0 {
		roles = []domain.Role{domain.Staff, domain.Student, domain.Parent}
	}
	pattern := "%" + query + "%"

	var out []domain.Profile
	for _, role := range roles {
		table, err := role.Collection()
		if err != nil {
			return nil, err
		}
		var rows []profileRow
		if err := db.selectRows(ctx, db, &rows, `
			SELECT id, name, email, avatar_url, institute_id FROM `+table+`
			WHERE LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)
			ORDER BY name
			LIMIT ?`, pattern, pattern, limit); err != nil {
			return nil, fmt.Errorf("search %s: %w", table, err)
		}
		for _, r := range rows {
			out = append(out, r.toDomain(role))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
