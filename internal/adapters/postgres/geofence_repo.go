package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suuupra/livetrack/internal/core/domain"
)

// GeofenceRepo implements ports.GeofenceRepository. Shapes are stored as
// JSONB so the definitions table stays schema-stable across geometry
// kinds; containment always runs against the in-memory index.
type GeofenceRepo struct {
	db *DB
}

func NewGeofenceRepo(db *DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

func (r *GeofenceRepo) Insert(ctx context.Context, g *domain.Geofence) error {
	geometry, err := json.Marshal(g.Shape)
	if err != nil {
		return fmt.Errorf("marshal geofence shape: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO geofences (id, entity_scope, name, geometry, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, g.ID, g.EntityScope, g.Name, geometry, g.CreatedAt)
	return wrapStorageErr("insert geofence", err)
}

func (r *GeofenceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM geofences WHERE id = $1`, id)
	if err != nil {
		return wrapStorageErr("delete geofence", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GeofenceRepo) List(ctx context.Context) ([]domain.Geofence, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, entity_scope, name, geometry, created_at
		FROM geofences
		ORDER BY created_at
	`)
	if err != nil {
		return nil, wrapStorageErr("list geofences", err)
	}
	defer rows.Close()

	var fences []domain.Geofence
	for rows.Next() {
		var g domain.Geofence
		var geometry []byte
		if err := rows.Scan(&g.ID, &g.EntityScope, &g.Name, &geometry, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan geofence: %w", err)
		}
		if err := json.Unmarshal(geometry, &g.Shape); err != nil {
			return nil, fmt.Errorf("unmarshal geofence %s shape: %w", g.ID, err)
		}
		fences = append(fences, g)
	}
	return fences, rows.Err()
}
