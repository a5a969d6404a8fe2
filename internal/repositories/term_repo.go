package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/finiti/glossary-api/internal/database"
	"github.com/finiti/glossary-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activeTermColumns = `id, stable_id, term, definition, version, status, created_at, created_by_id`

const archivedTermColumns = `id, original_term_id, stable_id, term, definition, archived_at,
	archived_by_id, change_summary, created_by_id, restored_at, restored_by_id, version`

type TermRepository struct {
	db *database.DB
}

func NewTermRepository(db *database.DB) *TermRepository {
	return &TermRepository{db: db}
}

func scanActiveTerm(scanner rowScanner) (*models.GlossaryTerm, error) {
	var t models.GlossaryTerm
	err := scanner.Scan(&t.ID, &t.StableID, &t.Term, &t.Definition, &t.Version,
		&t.Status, &t.CreatedAt, &t.CreatedByID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

func scanArchivedTerm(scanner rowScanner) (*models.ArchivedGlossaryTerm, error) {
	var a models.ArchivedGlossaryTerm
	err := scanner.Scan(&a.ID, &a.OriginalTermID, &a.StableID, &a.Term, &a.Definition,
		&a.ArchivedAt, &a.ArchivedByID, &a.ChangeSummary, &a.CreatedByID,
		&a.RestoredAt, &a.RestoredByID, &a.Version)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

func (r *TermRepository) GetActiveByID(ctx context.Context, id string) (*models.GlossaryTerm, error) {
	query := `SELECT ` + activeTermColumns + ` FROM glossary_terms WHERE id = $1`
	return scanActiveTerm(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *TermRepository) GetActiveByStableID(ctx context.Context, stableID string) (*models.GlossaryTerm, error) {
	query := `SELECT ` + activeTermColumns + ` FROM glossary_terms WHERE stable_id = $1`
	return scanActiveTerm(r.db.Pool.QueryRow(ctx, query, stableID))
}

// ListActive returns active rows, optionally restricted to one creator.
func (r *TermRepository) ListActive(ctx context.Context, createdByID *string) ([]*models.GlossaryTerm, error) {
	query := `SELECT ` + activeTermColumns + ` FROM glossary_terms`
	args := []any{}
	if createdByID != nil {
		query += ` WHERE created_by_id = $1`
		args = append(args, *createdByID)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var terms []*models.GlossaryTerm
	for rows.Next() {
		t, err := scanActiveTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (r *TermRepository) ListArchived(ctx context.Context, createdByID *string) ([]*models.ArchivedGlossaryTerm, error) {
	query := `SELECT ` + archivedTermColumns + ` FROM archived_glossary_terms`
	args := []any{}
	if createdByID != nil {
		query += ` WHERE created_by_id = $1`
		args = append(args, *createdByID)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var terms []*models.ArchivedGlossaryTerm
	for rows.Next() {
		a, err := scanArchivedTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, a)
	}
	return terms, rows.Err()
}

// GetArchivedByStableID returns every snapshot for one entry, newest version
// first.
func (r *TermRepository) GetArchivedByStableID(ctx context.Context, stableID string) ([]*models.ArchivedGlossaryTerm, error) {
	query := `SELECT ` + archivedTermColumns + `
		FROM archived_glossary_terms WHERE stable_id = $1 ORDER BY version DESC`

	rows, err := r.db.Pool.Query(ctx, query, stableID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var terms []*models.ArchivedGlossaryTerm
	for rows.Next() {
		a, err := scanArchivedTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, a)
	}
	return terms, rows.Err()
}

func (r *TermRepository) GetArchivedVersion(ctx context.Context, stableID string, version int) (*models.ArchivedGlossaryTerm, error) {
	query := `SELECT ` + archivedTermColumns + `
		FROM archived_glossary_terms WHERE stable_id = $1 AND version = $2`
	return scanArchivedTerm(r.db.Pool.QueryRow(ctx, query, stableID, version))
}

// LatestVersion returns the highest version recorded for a stable id across
// both the active row and its snapshots. Versions are never reused, so the
// next version is always this value plus one.
func (r *TermRepository) LatestVersion(ctx context.Context, stableID string) (int, error) {
	query := `
		SELECT COALESCE(MAX(version), 0) FROM (
			SELECT version FROM glossary_terms WHERE stable_id = $1
			UNION ALL
			SELECT version FROM archived_glossary_terms WHERE stable_id = $1
		) versions
	`

	var latest int
	if err := r.db.Pool.QueryRow(ctx, query, stableID).Scan(&latest); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return latest, nil
}

func (r *TermRepository) CreateActive(ctx context.Context, term *models.GlossaryTerm) (*models.GlossaryTerm, error) {
	term.ID = uuid.New().String()
	if term.StableID == "" {
		term.StableID = uuid.New().String()
	}
	term.CreatedAt = time.Now()

	query := `
		INSERT INTO glossary_terms (id, stable_id, term, definition, version, status, created_at, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + activeTermColumns

	return scanActiveTerm(r.db.Pool.QueryRow(ctx, query,
		term.ID, term.StableID, term.Term, term.Definition, term.Version,
		term.Status, term.CreatedAt, term.CreatedByID,
	))
}

// UpdateStatus flips the lifecycle status of an active row in place (publish).
func (r *TermRepository) UpdateStatus(ctx context.Context, id string, status models.TermStatus) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE glossary_terms SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteActive removes an active row without archiving it.
func (r *TermRepository) DeleteActive(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM glossary_terms WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func insertArchivedTx(ctx context.Context, tx pgx.Tx, snapshot *models.ArchivedGlossaryTerm) error {
	snapshot.ID = uuid.New().String()
	snapshot.ArchivedAt = time.Now()

	tag, err := tx.Exec(ctx, `
		INSERT INTO archived_glossary_terms
			(id, original_term_id, stable_id, term, definition, archived_at,
			 archived_by_id, change_summary, created_by_id, restored_at, restored_by_id, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		snapshot.ID, snapshot.OriginalTermID, snapshot.StableID, snapshot.Term,
		snapshot.Definition, snapshot.ArchivedAt, snapshot.ArchivedByID,
		snapshot.ChangeSummary, snapshot.CreatedByID, snapshot.RestoredAt,
		snapshot.RestoredByID, snapshot.Version,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSaveFailed
	}
	return nil
}

func deleteActiveTx(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM glossary_terms WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSaveFailed
	}
	return nil
}

// Archive snapshots the active row and removes it, atomically.
func (r *TermRepository) Archive(ctx context.Context, snapshot *models.ArchivedGlossaryTerm, activeID string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := insertArchivedTx(ctx, tx, snapshot); err != nil {
			return err
		}
		return deleteActiveTx(ctx, tx, activeID)
	})
}

// ReplaceActive rewrites the content of an active row, optionally snapshotting
// the outgoing version first. The snapshot is nil when an identical snapshot
// of the outgoing content already exists.
func (r *TermRepository) ReplaceActive(ctx context.Context, snapshot *models.ArchivedGlossaryTerm, updated *models.GlossaryTerm) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if snapshot != nil {
			if err := insertArchivedTx(ctx, tx, snapshot); err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE glossary_terms
			SET term = $1, definition = $2, version = $3, status = $4, created_at = $5
			WHERE id = $6`,
			updated.Term, updated.Definition, updated.Version, updated.Status,
			updated.CreatedAt, updated.ID,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrSaveFailed
		}
		return nil
	})
}

// Restore materializes a snapshot as the new active row. In one transaction
// it optionally archives and removes the current active row, inserts the
// restored row, and stamps restore provenance on the source snapshot.
func (r *TermRepository) Restore(ctx context.Context, autoSnapshot *models.ArchivedGlossaryTerm,
	removeActiveID *string, restored *models.GlossaryTerm,
	sourceSnapshotID string, restoredByID *string) error {

	restored.ID = uuid.New().String()
	restored.CreatedAt = time.Now()
	restoredAt := time.Now()

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if autoSnapshot != nil {
			if err := insertArchivedTx(ctx, tx, autoSnapshot); err != nil {
				return err
			}
		}
		if removeActiveID != nil {
			if err := deleteActiveTx(ctx, tx, *removeActiveID); err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO glossary_terms (id, stable_id, term, definition, version, status, created_at, created_by_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			restored.ID, restored.StableID, restored.Term, restored.Definition,
			restored.Version, restored.Status, restored.CreatedAt, restored.CreatedByID,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrSaveFailed
		}

		tag, err = tx.Exec(ctx, `
			UPDATE archived_glossary_terms SET restored_at = $1, restored_by_id = $2 WHERE id = $3`,
			restoredAt, restoredByID, sourceSnapshotID,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrSaveFailed
		}
		return nil
	})
}

var publicSortClauses = map[string]string{
	"dateAsc":  "created_at ASC",
	"dateDesc": "created_at DESC",
	"az":       "term ASC",
	"za":       "term DESC",
}

// ListPublished returns the public page of published entries plus the total
// match count. One row per stable id; when history ever produces more than
// one published row per id, the most recently created wins.
func (r *TermRepository) ListPublished(ctx context.Context, search, sort string, offset, limit int) ([]*models.PublicTerm, int, error) {
	orderBy, ok := publicSortClauses[sort]
	if !ok {
		orderBy = publicSortClauses["dateDesc"]
	}

	where := `WHERE status = $1`
	args := []any{models.StatusPublished}
	if search != "" {
		where += ` AND (term ILIKE $2 OR definition ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM (
			SELECT DISTINCT ON (stable_id) id
			FROM glossary_terms %s
			ORDER BY stable_id, created_at DESC
		) latest`, where)

	var total int
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, database.MapPostgresError(err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT id, term, definition, created_at FROM (
			SELECT DISTINCT ON (stable_id) id, term, definition, created_at
			FROM glossary_terms %s
			ORDER BY stable_id, created_at DESC
		) latest
		ORDER BY %s
		OFFSET $%d LIMIT $%d`, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.db.Pool.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, database.MapPostgresError(err)
	}
	defer rows.Close()

	var terms []*models.PublicTerm
	for rows.Next() {
		var t models.PublicTerm
		if err := rows.Scan(&t.ID, &t.Term, &t.Definition, &t.CreatedAt); err != nil {
			return nil, 0, database.MapPostgresError(err)
		}
		terms = append(terms, &t)
	}
	return terms, total, rows.Err()
}

// GetPublishedDetail returns one published entry with its creator's display
// name, or ErrNotFound when the id is unknown, unpublished, or archived.
func (r *TermRepository) GetPublishedDetail(ctx context.Context, id string) (*models.PublicTermDetail, error) {
	query := `
		SELECT t.id, t.term, t.definition, t.created_at, COALESCE(u.username, 'Unknown')
		FROM glossary_terms t
		LEFT JOIN users u ON u.id = t.created_by_id
		WHERE t.id = $1 AND t.status = $2
	`

	var d models.PublicTermDetail
	err := r.db.Pool.QueryRow(ctx, query, id, models.StatusPublished).
		Scan(&d.ID, &d.Term, &d.Definition, &d.CreatedAt, &d.CreatedByName)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &d, nil
}
