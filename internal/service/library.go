package service

import (
	"context"
	"fmt"
	"stillwave-marketplace/internal/dto"
	"stillwave-marketplace/internal/model"
	"stillwave-marketplace/internal/repository"
	"time"
)

// LibraryService answers "which tracks can this identity play" from the
// unrevoked access grants.
type LibraryService interface {
	ListAccess(ctx context.Context, userID *string, guestCartID string) ([]*dto.LibraryItem, error)
	ListTracks(ctx context.Context) ([]*model.Track, error)
}

type libraryServiceImpl struct {
	accessRepo repository.AccessRepository
	trackRepo  repository.TrackRepository
}

func NewLibraryService(accessRepo repository.AccessRepository, trackRepo repository.TrackRepository) LibraryService {
	return &libraryServiceImpl{
		accessRepo: accessRepo,
		trackRepo:  trackRepo,
	}
}

func (s *libraryServiceImpl) ListAccess(ctx context.Context, userID *string, guestCartID string) ([]*dto.LibraryItem, error) {
	var grants []*model.TrackAccess
	var err error

	switch {
	case userID != nil:
		grants, err = s.accessRepo.ListForUser(ctx, *userID)
	case guestCartID != "":
		grants, err = s.accessRepo.ListForGuestCart(ctx, guestCartID)
	default:
		return []*dto.LibraryItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list access grants: %w", err)
	}

	items := make([]*dto.LibraryItem, len(grants))
	for i, grant := range grants {
		items[i] = &dto.LibraryItem{
			TrackID:    grant.TrackID,
			PurchaseID: grant.PurchaseID,
			GrantedAt:  grant.CreatedAt.Format(time.RFC3339),
		}
	}

	return items, nil
}

func (s *libraryServiceImpl) ListTracks(ctx context.Context) ([]*model.Track, error) {
	return s.trackRepo.ListPublished(ctx)
}
