package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabulario/pkg/models"
)

const itemColumns = `id, kind, source_text, target_text, article, example_sentence,
	example_translation, level, last_level_change_at, in_learning,
	COALESCE(verb_id, '') AS verb_id, tense, person, created_at`

// ItemRepository handles database operations for learnable items
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new repository instance.
// A nil db uses the global connection.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) conn() *sqlx.DB {
	if r.db != nil {
		return r.db
	}
	return DB
}

// ListAll returns every item in insertion order
func (r *ItemRepository) ListAll(ctx context.Context) ([]models.Item, error) {
	items := []models.Item{}
	err := r.conn().SelectContext(ctx, &items, "SELECT "+itemColumns+" FROM items ORDER BY created_at, id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items")
	}
	return items, nil
}

// Get returns an item by ID
func (r *ItemRepository) Get(ctx context.Context, id string) (*models.Item, error) {
	db := r.conn()
	var item models.Item
	err := db.GetContext(ctx, &item, db.Rebind("SELECT "+itemColumns+" FROM items WHERE id = ?"), id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "item %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get item %s", id)
	}
	return &item, nil
}

// ListForms returns the conjugated forms of a verb
func (r *ItemRepository) ListForms(ctx context.Context, verbID string) ([]models.Item, error) {
	db := r.conn()
	forms := []models.Item{}
	query := db.Rebind("SELECT " + itemColumns + " FROM items WHERE verb_id = ? ORDER BY tense, person")
	if err := db.SelectContext(ctx, &forms, query, verbID); err != nil {
		return nil, errors.Wrap(err, "failed to list verb forms")
	}
	return forms, nil
}

// FindBySource looks up an item by its prompt-language text and kind.
// It returns nil without error when there is none.
func (r *ItemRepository) FindBySource(ctx context.Context, sourceText string, kind models.Kind) (*models.Item, error) {
	db := r.conn()
	var item models.Item
	query := db.Rebind("SELECT " + itemColumns + " FROM items WHERE LOWER(source_text) = LOWER(?) AND kind = ? LIMIT 1")
	err := db.GetContext(ctx, &item, query, sourceText, kind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find item")
	}
	return &item, nil
}

// Put inserts or fully replaces an item
func (r *ItemRepository) Put(ctx context.Context, item *models.Item) error {
	return put(ctx, r.conn(), item)
}

// PutAll stores items in one transaction, in the given order
func (r *ItemRepository) PutAll(ctx context.Context, items []models.Item) error {
	tx, err := r.conn().BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for i := range items {
		if err := put(ctx, tx, &items[i]); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit items")
}

// Delete removes an item. Deleting a verb removes its forms as well.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	item, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Kind == models.KindVerb {
		return r.DeleteCascade(ctx, id)
	}

	db := r.conn()
	if _, err := db.ExecContext(ctx, db.Rebind("DELETE FROM items WHERE id = ?"), id); err != nil {
		return errors.Wrapf(err, "failed to delete item %s", id)
	}
	return nil
}

// DeleteCascade removes a verb and every form referencing it
func (r *ItemRepository) DeleteCascade(ctx context.Context, verbID string) error {
	db := r.conn()
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM items WHERE verb_id = ?"), verbID); err != nil {
		return errors.Wrapf(err, "failed to delete forms of %s", verbID)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM items WHERE id = ?"), verbID); err != nil {
		return errors.Wrapf(err, "failed to delete verb %s", verbID)
	}
	return errors.Wrap(tx.Commit(), "failed to commit delete")
}

// Clear removes every item
func (r *ItemRepository) Clear(ctx context.Context) error {
	db := r.conn()
	// forms first so the foreign key never dangles
	if _, err := db.ExecContext(ctx, "DELETE FROM items WHERE verb_id IS NOT NULL"); err != nil {
		return errors.Wrap(err, "failed to clear verb forms")
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return errors.Wrap(err, "failed to clear items")
	}
	return nil
}

// execer is satisfied by *sqlx.DB and *sqlx.Tx
type execer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Rebind(string) string
}

func put(ctx context.Context, db execer, item *models.Item) error {
	if item.Level < 0 || item.Level > models.MaxLevel {
		return errors.Wrapf(ErrInvalidLevel, "item %s has level %d", item.ID, item.Level)
	}
	if item.IsForm() {
		var parents int
		err := sqlx.GetContext(ctx, db, &parents,
			db.Rebind("SELECT COUNT(*) FROM items WHERE id = ? AND kind = ?"), item.VerbID, models.KindVerb)
		if err != nil {
			return errors.Wrap(err, "failed to check parent verb")
		}
		if parents == 0 {
			return errors.Wrapf(ErrOrphanForm, "form %s references %q", item.ID, item.VerbID)
		}
	} else {
		item.VerbID = ""
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := db.Rebind(`
		INSERT INTO items (
			id, kind, source_text, target_text, article, example_sentence,
			example_translation, level, last_level_change_at, in_learning,
			verb_id, tense, person, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			source_text = excluded.source_text,
			target_text = excluded.target_text,
			article = excluded.article,
			example_sentence = excluded.example_sentence,
			example_translation = excluded.example_translation,
			level = excluded.level,
			last_level_change_at = excluded.last_level_change_at,
			in_learning = excluded.in_learning,
			verb_id = excluded.verb_id,
			tense = excluded.tense,
			person = excluded.person
	`)
	_, err := db.ExecContext(ctx, query,
		item.ID,
		item.Kind,
		item.SourceText,
		item.TargetText,
		item.Article,
		item.ExampleSentence,
		item.ExampleTranslation,
		item.Level,
		item.LastLevelChangeAt,
		item.InLearning,
		item.VerbID,
		item.Tense,
		item.Person,
		item.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to save item %s", item.ID)
	}
	return nil
}
