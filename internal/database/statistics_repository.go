package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabulario/pkg/models"
)

// StatsRepository computes collection statistics
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new repository instance.
// A nil db uses the global connection.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) conn() *sqlx.DB {
	if r.db != nil {
		return r.db
	}
	return DB
}

// Collect counts items per kind and per level bucket. Verb records
// only group their forms and are left out.
func (r *StatsRepository) Collect(ctx context.Context) (*models.Stats, error) {
	db := r.conn()

	var kinds []struct {
		Kind       models.Kind `db:"kind"`
		Total      int         `db:"total"`
		InLearning int         `db:"in_learning"`
	}
	err := db.SelectContext(ctx, &kinds, db.Rebind(`
		SELECT kind, COUNT(*) AS total,
			SUM(CASE WHEN in_learning THEN 1 ELSE 0 END) AS in_learning
		FROM items
		WHERE kind <> ?
		GROUP BY kind
	`), models.KindVerb)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count items")
	}

	stats := &models.Stats{ByKind: map[models.Kind]int{}, Levels: models.LevelBuckets()}
	for _, k := range kinds {
		stats.ByKind[k.Kind] = k.Total
		stats.Total += k.Total
		stats.InLearning += k.InLearning
	}

	var levels []struct {
		Level int `db:"level"`
		Count int `db:"n"`
	}
	err = db.SelectContext(ctx, &levels, db.Rebind(`
		SELECT level, COUNT(*) AS n FROM items WHERE kind <> ? GROUP BY level
	`), models.KindVerb)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count levels")
	}
	for _, l := range levels {
		for i := range stats.Levels {
			if l.Level >= stats.Levels[i].Min && l.Level <= stats.Levels[i].Max {
				stats.Levels[i].Count += l.Count
				break
			}
		}
	}
	return stats, nil
}
