package service

import (
	"context"
	"strings"
	"time"

	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CatalogService manages the gold catalog
type CatalogService interface {
	CreateGold(ctx context.Context, input GoldInput) (*domain.Gold, error)
	GetGold(ctx context.Context, id uuid.UUID) (*domain.Gold, error)
	ListGolds(ctx context.Context, query ListGoldsQuery) (*GoldPage, error)
	UpdateGold(ctx context.Context, id uuid.UUID, input GoldInput) (*domain.Gold, error)
	DeleteGold(ctx context.Context, id uuid.UUID) error
}

type GoldInput struct {
	Title        string
	Weight       decimal.Decimal
	PricePerGram decimal.Decimal
	Stock        int
	Description  string
	ImageURL     string
}

// ListGoldsQuery selects a page of the catalog. A non-empty Search switches to
// text search, which ignores the sort options.
type ListGoldsQuery struct {
	Page     int
	PageSize int
	SortBy   string
	Order    string
	Search   string
}

type GoldPage struct {
	Items    []*domain.Gold `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type catalogService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCatalogService(store repository.Store, logger *zap.Logger) CatalogService {
	return &catalogService{store: store, logger: logger.Named("catalog")}
}

func (s *catalogService) CreateGold(ctx context.Context, input GoldInput) (*domain.Gold, error) {
	now := time.Now()
	gold := &domain.Gold{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	input.apply(gold)

	if err := gold.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Golds().Create(ctx, gold); err != nil {
		return nil, storeErr("create gold", err)
	}

	s.logger.Info("Gold created", zap.String("gold_id", gold.ID.String()), zap.String("title", gold.Title))
	return gold, nil
}

func (s *catalogService) GetGold(ctx context.Context, id uuid.UUID) (*domain.Gold, error) {
	gold, err := s.store.Golds().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get gold", err)
	}
	return gold, nil
}

func (s *catalogService) ListGolds(ctx context.Context, query ListGoldsQuery) (*GoldPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = DefaultPageSize
	}
	if query.PageSize > MaxPageSize {
		query.PageSize = MaxPageSize
	}

	var (
		golds []*domain.Gold
		total int
		err   error
	)
	if search := strings.TrimSpace(query.Search); search != "" {
		golds, total, err = s.store.Golds().Search(ctx, search, query.Page, query.PageSize)
	} else {
		order := repository.SortOrderDesc
		if strings.EqualFold(query.Order, "asc") {
			order = repository.SortOrderAsc
		}
		golds, total, err = s.store.Golds().List(ctx, query.Page, query.PageSize, query.SortBy, order)
	}
	if err != nil {
		return nil, storeErr("list golds", err)
	}

	return &GoldPage{Items: golds, Total: total, Page: query.Page, PageSize: query.PageSize}, nil
}

// UpdateGold replaces the editable fields of a gold item
func (s *catalogService) UpdateGold(ctx context.Context, id uuid.UUID, input GoldInput) (*domain.Gold, error) {
	var gold *domain.Gold
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		gold, err = tx.Golds().FindByID(ctx, id)
		if err != nil {
			return err
		}

		input.apply(gold)
		if err := gold.Validate(); err != nil {
			return err
		}

		return tx.Golds().Update(ctx, gold)
	})
	if err != nil {
		return nil, storeErr("update gold", err)
	}

	s.logger.Info("Gold updated", zap.String("gold_id", id.String()))
	return gold, nil
}

func (s *catalogService) DeleteGold(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Golds().Delete(ctx, id); err != nil {
		return storeErr("delete gold", err)
	}
	s.logger.Info("Gold deleted", zap.String("gold_id", id.String()))
	return nil
}

func (in GoldInput) apply(g *domain.Gold) {
	g.Title = strings.TrimSpace(in.Title)
	g.Weight = in.Weight
	g.PricePerGram = in.PricePerGram
	g.Stock = in.Stock
	g.Description = in.Description
	g.ImageURL = in.ImageURL
}
