package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/richi-sixt/calisthenics-progression/internal/domain"
)

// CatalogRepo persists exercise definitions.
type CatalogRepo struct {
	db *DB
}

// NewCatalogRepo constructs a CatalogRepo.
func NewCatalogRepo(db *DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

const definitionQuery = `SELECT d.id, d.owner_id, u.username, d.title, d.counting_type, d.description, d.archived, d.created_at
        FROM exercise_definitions d
        JOIN users u ON u.id = d.owner_id`

// CreateDefinition inserts a definition. The (owner, title) uniqueness
// constraint is the final arbiter for concurrent duplicates.
func (r *CatalogRepo) CreateDefinition(ctx context.Context, def domain.ExerciseDefinition) error {
	const stmt = `INSERT INTO exercise_definitions (id, owner_id, title, counting_type, description, archived, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := r.db.Pool.Exec(ctx, stmt, def.ID, def.OwnerID, def.Title, string(def.CountingType), def.Description, def.Archived, def.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateTitle
	}
	return err
}

// GetDefinition fetches one definition, or nil when absent.
func (r *CatalogRepo) GetDefinition(ctx context.Context, id string) (*domain.ExerciseDefinition, error) {
	const query = definitionQuery + ` WHERE d.id = $1`

	row := r.db.Pool.QueryRow(ctx, query, id)
	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

// GetDefinitions resolves a batch of definition IDs, archived ones included.
func (r *CatalogRepo) GetDefinitions(ctx context.Context, ids []string) (map[string]domain.ExerciseDefinition, error) {
	const query = definitionQuery + ` WHERE d.id = ANY($1::uuid[])`

	rows, err := r.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make(map[string]domain.ExerciseDefinition, len(ids))
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs[def.ID] = *def
	}
	return defs, rows.Err()
}

// ListOwned returns one profile's live definitions ordered by title.
func (r *CatalogRepo) ListOwned(ctx context.Context, ownerID string) ([]domain.ExerciseDefinition, error) {
	const query = definitionQuery + ` WHERE d.owner_id = $1 AND NOT d.archived ORDER BY d.title`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefinitions(rows)
}

// ListOthers returns other profiles' live definitions grouped per owner.
func (r *CatalogRepo) ListOthers(ctx context.Context, viewerID string) ([]domain.DefinitionGroup, error) {
	const query = definitionQuery + `
        WHERE d.owner_id <> $1 AND NOT d.archived
        ORDER BY u.username, d.title`

	rows, err := r.db.Pool.Query(ctx, query, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs, err := scanDefinitions(rows)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.DefinitionGroup, 0)
	for _, def := range defs {
		if len(groups) == 0 || groups[len(groups)-1].Owner != def.OwnerUsername {
			groups = append(groups, domain.DefinitionGroup{Owner: def.OwnerUsername})
		}
		last := &groups[len(groups)-1]
		last.Definitions = append(last.Definitions, def)
	}
	return groups, nil
}

// ListAll pages through every owner's live definitions.
func (r *CatalogRepo) ListAll(ctx context.Context, page domain.Page) ([]domain.ExerciseDefinition, error) {
	const query = definitionQuery + ` WHERE NOT d.archived ORDER BY d.title, u.username LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefinitions(rows)
}

// UpdateDefinition rewrites title and description.
func (r *CatalogRepo) UpdateDefinition(ctx context.Context, def domain.ExerciseDefinition) error {
	const stmt = `UPDATE exercise_definitions SET title = $2, description = $3 WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, stmt, def.ID, def.Title, def.Description)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateTitle
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetArchived flips the archive flag.
func (r *CatalogRepo) SetArchived(ctx context.Context, id string, archived bool) error {
	const stmt = `UPDATE exercise_definitions SET archived = $2 WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, stmt, id, archived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDefinition removes a definition. The RESTRICT reference from
// exercise_instances keeps definitions alive while any workout still uses
// them.
func (r *CatalogRepo) DeleteDefinition(ctx context.Context, id string) error {
	const stmt = `DELETE FROM exercise_definitions WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, stmt, id)
	if isForeignKeyViolation(err, "") {
		return domain.ErrDefinitionInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanDefinition(row pgx.Row) (*domain.ExerciseDefinition, error) {
	var def domain.ExerciseDefinition
	if err := row.Scan(&def.ID, &def.OwnerID, &def.OwnerUsername, &def.Title, &def.CountingType, &def.Description, &def.Archived, &def.CreatedAt); err != nil {
		return nil, err
	}
	return &def, nil
}

func scanDefinitions(rows pgx.Rows) ([]domain.ExerciseDefinition, error) {
	defs := make([]domain.ExerciseDefinition, 0)
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}
