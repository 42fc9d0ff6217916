package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// Stats is the dashboard summary. TotalRevenue stays nil: there is no order
// tracking to derive it from.
type Stats struct {
	TotalProducts int      `json:"totalProducts"`
	TotalUsers    int      `json:"totalUsers"`
	TotalRevenue  *float64 `json:"totalRevenue"`
}

type Dashboard struct {
	Products []models.Product `json:"products"`
	Users    []models.User    `json:"users"`
	Stats    Stats            `json:"stats"`
}

type AdminService struct {
	Repo      *repo.GormRepo
	Publisher Publisher
}

// Dashboard never fails. A failing query is logged and yields an empty list.
func (s *AdminService) Dashboard(ctx context.Context) Dashboard {
	l := logging.FromContext(ctx).With("svc", "admin.dashboard")

	products, err := s.Repo.ListProducts(ctx)
	if err != nil {
		l.Error("list_products_error", "error", err)
		products = []models.Product{}
	}
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		l.Error("list_users_error", "error", err)
		users = []models.User{}
	}

	return Dashboard{
		Products: products,
		Users:    users,
		Stats: Stats{
			TotalProducts: s.count(ctx, "count_products_error", s.Repo.CountProducts, len(products)),
			TotalUsers:    s.count(ctx, "count_users_error", s.Repo.CountUsers, len(users)),
		},
	}
}

// count falls back to the length of the listed rows when the count query fails.
func (s *AdminService) count(ctx context.Context, op string, fn func(context.Context) (int64, error), listed int) int {
	n, err := fn(ctx)
	if err != nil {
		logging.FromContext(ctx).With("svc", "admin.dashboard").Error(op, "error", err)
		return listed
	}
	return int(n)
}

func (s *AdminService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteNonAdminUser(ctx, id); err != nil {
		switch {
		case errors.Is(err, repo.ErrProtectedUser):
			return ErrAdminUndeletable
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrNotFound
		default:
			return err
		}
	}

	publish(ctx, s.Publisher, mykafka.TopicUserEvents, id, map[string]any{
		"type":   "user_deleted",
		"userID": id,
	})
	return nil
}
