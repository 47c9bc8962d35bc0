package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
)

type goldRepo struct{ s *Store }

func (r goldRepo) Create(ctx context.Context, gold *domain.Gold) error {
	return r.s.do(ctx, "Golds.Create", func(st *state) error {
		st.golds[gold.ID] = *gold
		return nil
	})
}

func (r goldRepo) Update(ctx context.Context, gold *domain.Gold) error {
	return r.s.do(ctx, "Golds.Update", func(st *state) error {
		existing, ok := st.golds[gold.ID]
		if !ok {
			return repository.ErrGoldNotFound
		}
		updated := *gold
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now()
		gold.UpdatedAt = updated.UpdatedAt
		st.golds[gold.ID] = updated
		return nil
	})
}

func (r goldRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, "Golds.Delete", func(st *state) error {
		if _, ok := st.golds[id]; !ok {
			return repository.ErrGoldNotFound
		}
		for _, items := range st.orderItems {
			for _, item := range items {
				if item.GoldID == id {
					return repository.ErrGoldInUse
				}
			}
		}
		for itemID, item := range st.cartItems {
			if item.GoldID == id {
				delete(st.cartItems, itemID)
			}
		}
		delete(st.golds, id)
		return nil
	})
}

func (r goldRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Gold, error) {
	var found *domain.Gold
	err := r.s.do(ctx, "Golds.FindByID", func(st *state) error {
		g, ok := st.golds[id]
		if !ok {
			return repository.ErrGoldNotFound
		}
		found = &g
		return nil
	})
	return found, err
}

func (r goldRepo) List(ctx context.Context, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Gold, int, error) {
	var all []*domain.Gold
	err := r.s.do(ctx, "Golds.List", func(st *state) error {
		all = collectGolds(st, func(domain.Gold) bool { return true })
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	less := goldLess(sortBy)
	desc := sortOrder != repository.SortOrderAsc
	sort.SliceStable(all, func(i, j int) bool {
		if desc {
			return less(all[j], all[i])
		}
		return less(all[i], all[j])
	})

	return paginate(all, page, pageSize), len(all), nil
}

func (r goldRepo) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Gold, int, error) {
	q := strings.ToLower(query)
	var found []*domain.Gold
	err := r.s.do(ctx, "Golds.Search", func(st *state) error {
		found = collectGolds(st, func(g domain.Gold) bool {
			return strings.Contains(strings.ToLower(g.Title), q) ||
				strings.Contains(strings.ToLower(g.Description), q)
		})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	return paginate(found, page, pageSize), len(found), nil
}

func (r goldRepo) FindForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Gold, error) {
	result := make(map[uuid.UUID]*domain.Gold, len(ids))
	err := r.s.do(ctx, "Golds.FindForUpdate", func(st *state) error {
		for _, id := range ids {
			if g, ok := st.golds[id]; ok {
				result[id] = &g
			}
		}
		return nil
	})
	return result, err
}

func (r goldRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	applied := false
	err := r.s.do(ctx, "Golds.DecrementStock", func(st *state) error {
		g, ok := st.golds[id]
		if !ok || g.Stock < quantity {
			return nil
		}
		g.Stock -= quantity
		st.golds[id] = g
		applied = true
		return nil
	})
	return applied, err
}

func collectGolds(st *state, keep func(domain.Gold) bool) []*domain.Gold {
	golds := []*domain.Gold{}
	for _, g := range st.golds {
		if keep(g) {
			golds = append(golds, &g)
		}
	}
	// Map order is random; id order keeps ties deterministic.
	sort.Slice(golds, func(i, j int) bool { return golds[i].ID.String() < golds[j].ID.String() })
	return golds
}

func goldLess(sortBy string) func(a, b *domain.Gold) bool {
	switch sortBy {
	case "title":
		return func(a, b *domain.Gold) bool { return a.Title < b.Title }
	case "price_per_gram":
		return func(a, b *domain.Gold) bool { return a.PricePerGram.LessThan(b.PricePerGram) }
	case "weight":
		return func(a, b *domain.Gold) bool { return a.Weight.LessThan(b.Weight) }
	case "stock":
		return func(a, b *domain.Gold) bool { return a.Stock < b.Stock }
	default:
		return func(a, b *domain.Gold) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
