package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"realty_chat/internal/domain"
	apperrors "realty_chat/pkg/errors"
	"realty_chat/pkg/logger"
)

type ListingRepository interface {
	Search(ctx context.Context, criteria domain.SearchCriteria, limit int) ([]*domain.Listing, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	Create(ctx context.Context, listing *domain.Listing) error
	CountActive(ctx context.Context) (int, error)
}

type listingRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewListingRepository(db *pgxpool.Pool, log logger.Logger) ListingRepository {
	return &listingRepository{db: db, log: log}
}

const listingColumns = `id, title, description, price, location, heating, property_type, category, kitchen,
	rooms, bathrooms, area, image_url, is_active, created_at`

// Поля, по которым ищется свободный текст
var listingTextFields = []string{
	"title", "description", "location", "heating", "property_type", "category", "kitchen",
}

func (r *listingRepository) Search(ctx context.Context, criteria domain.SearchCriteria, limit int) ([]*domain.Listing, error) {
	query, args := buildListingSearch(criteria, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to search listings", "error", err, "query", criteria.Query)
		return nil, fmt.Errorf("search listings: %w", err)
	}
	defer rows.Close()

	listings := []*domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			r.log.Error("Failed to scan listing", "error", err)
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

func (r *listingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`

	l, err := scanListing(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrListingNotFound
		}
		r.log.Error("Failed to get listing", "error", err, "listing_id", id)
		return nil, fmt.Errorf("get listing: %w", err)
	}

	return l, nil
}

func (r *listingRepository) Create(ctx context.Context, l *domain.Listing) error {
	query := `
		INSERT INTO listings (id, title, description, price, location, heating, property_type, category,
		                      kitchen, rooms, bathrooms, area, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, query,
		l.ID, l.Title, l.Description, l.Price, l.Location, l.Heating, l.PropertyType, l.Category,
		l.Kitchen, l.Rooms, l.Bathrooms, l.Area, l.ImageURL, l.IsActive,
	).Scan(&l.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create listing", "error", err)
		return fmt.Errorf("create listing: %w", err)
	}

	return nil
}

func (r *listingRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM listings WHERE is_active`).Scan(&count); err != nil {
		r.log.Error("Failed to count listings", "error", err)
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return count, nil
}

// buildListingSearch собирает запрос: только активные объявления, текст ищется
// через OR по текстовым полям, площадь и комнаты - необязательные фильтры
func buildListingSearch(criteria domain.SearchCriteria, limit int) (string, []any) {
	conds := []string{"is_active = TRUE"}
	args := []any{}

	if q := strings.TrimSpace(criteria.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		parts := make([]string, 0, len(listingTextFields))
		for _, field := range listingTextFields {
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", field, n))
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	// area - INTEGER: дробные границы округляются внутрь диапазона
	if criteria.MinArea > 0 {
		args = append(args, int(math.Ceil(criteria.MinArea)))
		conds = append(conds, fmt.Sprintf("area >= $%d", len(args)))
	}
	if criteria.MaxArea > 0 {
		args = append(args, int(math.Floor(criteria.MaxArea)))
		conds = append(conds, fmt.Sprintf("area <= $%d", len(args)))
	}
	if criteria.Rooms != nil {
		if rooms := strings.TrimSpace(*criteria.Rooms); rooms != "" {
			args = append(args, "%"+escapeLike(rooms)+"%")
			conds = append(conds, fmt.Sprintf("rooms ILIKE $%d", len(args)))
		}
	}

	if limit <= 0 {
		limit = 1
	}
	args = append(args, limit)

	query := `SELECT ` + listingColumns + ` FROM listings WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	return query, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	l := &domain.Listing{}
	err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Price, &l.Location, &l.Heating, &l.PropertyType, &l.Category,
		&l.Kitchen, &l.Rooms, &l.Bathrooms, &l.Area, &l.ImageURL, &l.IsActive, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}
