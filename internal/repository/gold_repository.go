package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"goldshop/internal/database"
	"goldshop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrGoldNotFound = fmt.Errorf("gold %w", domain.ErrNotFound)
	ErrGoldInUse    = fmt.Errorf("gold is referenced by orders: %w", domain.ErrConflict)
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// GoldRepository defines the interface for gold catalog data access
type GoldRepository interface {
	Create(ctx context.Context, gold *domain.Gold) error
	Update(ctx context.Context, gold *domain.Gold) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Gold, error)
	List(ctx context.Context, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Gold, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Gold, int, error)

	// FindForUpdate locks the given rows in id order and returns them keyed by id.
	// Missing ids are absent from the map.
	FindForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Gold, error)

	// DecrementStock subtracts quantity only if enough stock remains.
	// It reports false when the guard rejected the update.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
}

type goldRepository struct {
	db DBTX
}

// NewGoldRepository creates a new instance of GoldRepository
func NewGoldRepository(db DBTX) GoldRepository {
	return &goldRepository{db: db}
}

const goldColumns = `id, title, weight, price_per_gram, stock, COALESCE(description, ''), COALESCE(image_url, ''), created_at, updated_at`

var goldSortFields = map[string]bool{
	"title":          true,
	"price_per_gram": true,
	"weight":         true,
	"stock":          true,
	"created_at":     true,
}

func (r *goldRepository) Create(ctx context.Context, gold *domain.Gold) error {
	query := `
		INSERT INTO golds (id, title, weight, price_per_gram, stock, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		gold.ID,
		gold.Title,
		gold.Weight,
		gold.PricePerGram,
		gold.Stock,
		gold.Description,
		gold.ImageURL,
		gold.CreatedAt,
		gold.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create gold: %w", err)
	}

	return nil
}

func (r *goldRepository) Update(ctx context.Context, gold *domain.Gold) error {
	query := `
		UPDATE golds
		SET title = $2, weight = $3, price_per_gram = $4, stock = $5,
		    description = NULLIF($6, ''), image_url = NULLIF($7, '')
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		gold.ID,
		gold.Title,
		gold.Weight,
		gold.PricePerGram,
		gold.Stock,
		gold.Description,
		gold.ImageURL,
	).Scan(&gold.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGoldNotFound
		}
		return fmt.Errorf("failed to update gold: %w", err)
	}

	return nil
}

// Delete removes a gold item. Items referenced by past orders cannot be removed.
func (r *goldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM golds WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrGoldInUse
		}
		return fmt.Errorf("failed to delete gold: %w", err)
	}

	return expectAffected(result, ErrGoldNotFound)
}

func (r *goldRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Gold, error) {
	query := `SELECT ` + goldColumns + ` FROM golds WHERE id = $1`

	gold, err := scanGold(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGoldNotFound
		}
		return nil, fmt.Errorf("failed to find gold by ID: %w", err)
	}

	return gold, nil
}

// List retrieves gold items with pagination and sorting
func (r *goldRepository) List(ctx context.Context, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Gold, int, error) {
	// Whitelisted: the column name is interpolated into the query.
	if !goldSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM golds`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count golds: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM golds
		ORDER BY %s %s, id
		LIMIT $1 OFFSET $2
	`, goldColumns, sortBy, sortOrder)

	golds, err := r.queryGolds(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	return golds, total, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches title or description case-insensitively
func (r *goldRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Gold, int, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"

	countQuery := `
		SELECT COUNT(*) FROM golds
		WHERE LOWER(title) LIKE $1 ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE $1 ESCAPE '\'
	`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	searchQuery := `
		SELECT ` + goldColumns + `
		FROM golds
		WHERE LOWER(title) LIKE $1 ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE $1 ESCAPE '\'
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	golds, err := r.queryGolds(ctx, searchQuery, pattern, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	return golds, total, nil
}

func (r *goldRepository) FindForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Gold, error) {
	result := make(map[uuid.UUID]*domain.Gold, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	// Locking in id order keeps concurrent checkouts from deadlocking.
	query := fmt.Sprintf(`
		SELECT %s
		FROM golds
		WHERE id IN (%s)
		ORDER BY id
		FOR UPDATE
	`, goldColumns, strings.Join(placeholders, ", "))

	golds, err := r.queryGolds(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	for _, g := range golds {
		result[g.ID] = g
	}
	return result, nil
}

func (r *goldRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE golds SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, id, quantity)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *goldRepository) queryGolds(ctx context.Context, query string, args ...any) ([]*domain.Gold, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query golds: %w", err)
	}
	defer rows.Close()

	golds := []*domain.Gold{}
	for rows.Next() {
		gold, err := scanGold(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gold: %w", err)
		}
		golds = append(golds, gold)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating golds: %w", err)
	}

	return golds, nil
}

func scanGold(row rowScanner) (*domain.Gold, error) {
	gold := &domain.Gold{}
	err := row.Scan(
		&gold.ID,
		&gold.Title,
		&gold.Weight,
		&gold.PricePerGram,
		&gold.Stock,
		&gold.Description,
		&gold.ImageURL,
		&gold.CreatedAt,
		&gold.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return gold, nil
}
