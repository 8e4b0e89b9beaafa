package gigs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/database"
)

const gigColumns = `
	id, seller_id, title, description, category, subcategory, tags, packages, images, faqs, requirements,
	rating_average, rating_count, order_count, is_active, created_at, updated_at`

// basicPrice is the listing price used for filters and sorting
const basicPrice = `(packages->'basic'->>'price')::numeric`

var sortColumns = map[SortField]string{
	SortNewest: "created_at",
	SortRating: "rating_average",
	SortOrders: "order_count",
	SortPrice:  basicPrice,
}

// Repository handles gig persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new gigs repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a gig
func (r *Repository) Create(ctx context.Context, g *Gig) error {
	packages, faqs, err := encodeDocs(g)
	if err != nil {
		return err
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	_, err = r.db.Exec(ctx, `
		INSERT INTO gigs (
			id, seller_id, title, description, category, subcategory, tags, packages, images, faqs, requirements,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		g.ID, g.SellerID, g.Title, g.Description, g.Category, g.Subcategory, g.Tags, packages, g.Images, faqs, g.Requirements,
		g.IsActive, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert gig: %w", err)
	}
	return nil
}

// GetByID loads one gig
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Gig, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	g, err := scanGig(r.db.QueryRow(ctx, `SELECT `+gigColumns+` FROM gigs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("gig not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("get gig: %w", err)
	}
	return g, nil
}

// List pages through active gigs
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*Gig, int64, error) {
	conds := []string{"is_active"}
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Subcategory != "" {
		add("subcategory = $%d", filter.Subcategory)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE $%d))", n, n, n))
	}
	if filter.MinPrice != nil {
		add(basicPrice+" >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add(basicPrice+" <= $%d", *filter.MaxPrice)
	}

	order, ok := sortColumns[filter.SortBy]
	if !ok {
		order = sortColumns[SortNewest]
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	return r.page(ctx, strings.Join(conds, " AND "), order+" "+direction+", id", args, filter.Limit, filter.Offset)
}

// ListBySeller pages through one seller's gigs, newest first
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter SellerFilter) ([]*Gig, int64, error) {
	where := "seller_id = $1"
	args := []interface{}{sellerID}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where += " AND is_active = $2"
	}
	return r.page(ctx, where, "created_at DESC, id", args, filter.Limit, filter.Offset)
}

func (r *Repository) page(ctx context.Context, where, order string, args []interface{}, limit, offset int) ([]*Gig, int64, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM gigs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count gigs: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM gigs WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		gigColumns, where, order, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list gigs: %w", err)
	}
	defer rows.Close()

	var out []*Gig
	for rows.Next() {
		g, err := scanGig(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan gig: %w", err)
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}

// Update writes the editable fields of g
func (r *Repository) Update(ctx context.Context, g *Gig) (*Gig, error) {
	packages, faqs, err := encodeDocs(g)
	if err != nil {
		return nil, err
	}

	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	updated, err := scanGig(r.db.QueryRow(ctx, `
		UPDATE gigs SET title = $2, description = $3, category = $4, subcategory = $5, tags = $6,
			packages = $7, images = $8, faqs = $9, requirements = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+gigColumns,
		g.ID, g.Title, g.Description, g.Category, g.Subcategory, g.Tags, packages, g.Images, faqs, g.Requirements,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("gig not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("update gig: %w", err)
	}
	return updated, nil
}

// SetActive lists or unlists a gig. Unlisted gigs keep their orders.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Gig, error) {
	ctx, cancel := database.WithQueryTimeout(ctx)
	defer cancel()

	g, err := scanGig(r.db.QueryRow(ctx, `
		UPDATE gigs SET is_active = $2, updated_at = NOW() WHERE id = $1
		RETURNING `+gigColumns, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("gig not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("set gig active: %w", err)
	}
	return g, nil
}

func encodeDocs(g *Gig) ([]byte, []byte, error) {
	packages, err := json.Marshal(g.Packages)
	if err != nil {
		return nil, nil, fmt.Errorf("encode packages: %w", err)
	}
	faqs, err := json.Marshal(g.FAQs)
	if err != nil {
		return nil, nil, fmt.Errorf("encode faqs: %w", err)
	}
	return packages, faqs, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanGig(row pgx.Row) (*Gig, error) {
	var g Gig
	var packages, faqs []byte

	err := row.Scan(
		&g.ID, &g.SellerID, &g.Title, &g.Description, &g.Category, &g.Subcategory, &g.Tags, &packages, &g.Images, &faqs, &g.Requirements,
		&g.RatingAverage, &g.RatingCount, &g.OrderCount, &g.IsActive, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(packages, &g.Packages); err != nil {
		return nil, fmt.Errorf("decode packages: %w", err)
	}
	if err := json.Unmarshal(faqs, &g.FAQs); err != nil {
		g.FAQs = []FAQ{}
	}
	return &g, nil
}
