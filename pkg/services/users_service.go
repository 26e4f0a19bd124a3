package services

import (
	"context"
	"fmt"
	"time"

	"skycast/pkg/cache"
	"skycast/pkg/models"
	"skycast/pkg/repository"
)

type UsersService interface {
	Search(ctx context.Context, query string, page, limit int) ([]models.User, error)
}

type usersService struct {
	repo  repository.UserRepository
	redis *cache.Redis
}

func NewUsersService(repo repository.UserRepository, redis *cache.Redis) UsersService {
	return &usersService{repo: repo, redis: redis}
}

// Search pages through the directory. Pages are served read-through from
// redis with a short TTL; the directory changes rarely enough that explicit
// invalidation is not worth carrying.
func (s *usersService) Search(ctx context.Context, query string, page, limit int) ([]models.User, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	cacheKey := fmt.Sprintf("users:list:%s:%d:%d", query, limit, offset)
	var cached []models.User
	if s.redis != nil && s.redis.Get(cacheKey, &cached) {
		return cached, nil
	}

	users, err := s.repo.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		s.redis.Set(cacheKey, users, 30*time.Second)
	}
	return users, nil
}
