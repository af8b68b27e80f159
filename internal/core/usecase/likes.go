package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/cinerec/internal/core/domain"
	"github.com/kirillkom/cinerec/internal/core/ports"
)

// LikeUseCase records preference changes in the system of record and keeps
// the fact store projection in step. Both sides are idempotent.
type LikeUseCase struct {
	likes   ports.LikeStore
	catalog ports.CatalogStore
	facts   ports.FactStore
}

func NewLikeUseCase(likes ports.LikeStore, catalog ports.CatalogStore, facts ports.FactStore) *LikeUseCase {
	return &LikeUseCase{likes: likes, catalog: catalog, facts: facts}
}

func (uc *LikeUseCase) Like(ctx context.Context, userID, movieID int64) error {
	if err := validateLikePair(userID, movieID); err != nil {
		return err
	}
	if _, err := uc.catalog.GetByID(ctx, movieID); err != nil {
		return err
	}
	if err := uc.likes.SaveLike(ctx, userID, movieID); err != nil {
		return fmt.Errorf("save like: %w", err)
	}
	uc.facts.AssertLike(userID, movieID)
	return nil
}

func (uc *LikeUseCase) Unlike(ctx context.Context, userID, movieID int64) error {
	if err := validateLikePair(userID, movieID); err != nil {
		return err
	}
	if err := uc.likes.DeleteLike(ctx, userID, movieID); err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	uc.facts.RetractLike(userID, movieID)
	return nil
}

func validateLikePair(userID, movieID int64) error {
	if userID <= 0 || movieID <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "record like", fmt.Errorf("user=%d movie=%d", userID, movieID))
	}
	return nil
}
