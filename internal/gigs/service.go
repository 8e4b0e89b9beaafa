package gigs

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/security"
	"go.uber.org/zap"
)

const (
	// maxBrowseLimit caps one page of the public listing
	maxBrowseLimit = 50
	// maxSellerLimit caps one page of a seller's own gigs
	maxSellerLimit = 20
)

// Service implements gig listings
type Service struct {
	repo RepositoryInterface
	now  func() time.Time
}

// NewService creates a new gig service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateGig publishes a listing owned by sellerID
func (s *Service) CreateGig(ctx context.Context, sellerID uuid.UUID, req *CreateGigRequest) (*Gig, error) {
	if err := validatePackages(&req.Packages); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	g := &Gig{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Title:        security.SanitizeText(req.Title),
		Description:  security.SanitizeText(req.Description),
		Category:     req.Category,
		Subcategory:  security.SanitizeString(req.Subcategory),
		Tags:         normalizeTags(req.Tags),
		Packages:     req.Packages,
		Images:       orEmpty(req.Images),
		FAQs:         req.FAQs,
		Requirements: orEmpty(req.Requirements),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if g.FAQs == nil {
		g.FAQs = []FAQ{}
	}
	if g.Title == "" || g.Description == "" {
		return nil, common.NewBadRequestError("title and description are required", nil)
	}

	if err := s.repo.Create(ctx, g); err != nil {
		logger.WithContext(ctx).Error("failed to create gig", zap.String("seller_id", sellerID.String()), zap.Error(err))
		return nil, common.NewInternalError("failed to create gig", err)
	}

	logger.WithContext(ctx).Info("gig created",
		zap.String("gig_id", g.ID.String()),
		zap.String("seller_id", sellerID.String()),
		zap.String("category", g.Category),
	)
	return g, nil
}

// GetGig returns one gig
func (s *Service) GetGig(ctx context.Context, id uuid.UUID) (*Gig, error) {
	return s.repo.GetByID(ctx, id)
}

// ListGigs browses active gigs
func (s *Service) ListGigs(ctx context.Context, filter ListFilter) ([]*Gig, int64, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, common.NewBadRequestError("min_price cannot exceed max_price", nil)
	}
	filter.Limit = clamp(filter.Limit, maxBrowseLimit)
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// ListBySeller lists every gig of a seller
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter SellerFilter) ([]*Gig, int64, error) {
	filter.Limit = clamp(filter.Limit, maxSellerLimit)
	return s.repo.ListBySeller(ctx, sellerID, filter)
}

// UpdateGig applies the set fields of req to a gig owned by userID
func (s *Service) UpdateGig(ctx context.Context, id, userID uuid.UUID, req *UpdateGigRequest) (*Gig, error) {
	g, err := s.owned(ctx, id, userID, "Not authorized to update this gig")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		g.Title = security.SanitizeText(*req.Title)
	}
	if req.Description != nil {
		g.Description = security.SanitizeText(*req.Description)
	}
	if req.Category != nil {
		g.Category = *req.Category
	}
	if req.Subcategory != nil {
		g.Subcategory = security.SanitizeString(*req.Subcategory)
	}
	if req.Tags != nil {
		g.Tags = normalizeTags(*req.Tags)
	}
	if req.Packages != nil {
		if err := validatePackages(req.Packages); err != nil {
			return nil, err
		}
		g.Packages = *req.Packages
	}
	if req.Images != nil {
		g.Images = orEmpty(*req.Images)
	}
	if req.FAQs != nil {
		g.FAQs = *req.FAQs
	}
	if req.Requirements != nil {
		g.Requirements = orEmpty(*req.Requirements)
	}
	if g.Title == "" || g.Description == "" {
		return nil, common.NewBadRequestError("title and description are required", nil)
	}

	return s.repo.Update(ctx, g)
}

// SetActive lists or unlists a gig owned by userID. Unlisted gigs take no
// new orders.
func (s *Service) SetActive(ctx context.Context, id, userID uuid.UUID, active bool) (*Gig, error) {
	g, err := s.owned(ctx, id, userID, "Not authorized to modify this gig")
	if err != nil {
		return nil, err
	}
	if g.IsActive == active {
		return g, nil
	}

	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("gig listing changed", zap.String("gig_id", id.String()), zap.Bool("active", active))
	return updated, nil
}

func (s *Service) owned(ctx context.Context, id, userID uuid.UUID, denied string) (*Gig, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.SellerID != userID {
		return nil, common.NewForbiddenError(denied)
	}
	return g, nil
}

// validatePackages checks that upgrades cost at least the tier below
func validatePackages(p *Packages) error {
	floor := p.Basic.Price
	for _, tier := range []*Package{p.Standard, p.Premium} {
		if tier == nil {
			continue
		}
		if tier.Price < floor {
			return common.NewBadRequestError("package prices must not decrease from basic to premium", nil)
		}
		floor = tier.Price
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(security.SanitizeText(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clamp(limit, maxLimit int) int {
	if limit <= 0 || limit > maxLimit {
		return maxLimit
	}
	return limit
}
