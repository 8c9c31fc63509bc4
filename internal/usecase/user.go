package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// Identity is what the bearer token says about the caller.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

type UserUseCase struct {
	Repo  entity.UserRepositoryInterface
	Clock clock.Clock
	Log   *zap.Logger
}

func NewUserUseCase(repo entity.UserRepositoryInterface, clk clock.Clock, log *zap.Logger) *UserUseCase {
	return &UserUseCase{Repo: repo, Clock: clk, Log: log}
}

// Me returns the caller's profile, creating it from the token claims on
// first access.
func (uc *UserUseCase) Me(ctx context.Context, id Identity) (*entity.UserProfile, error) {
	u, err := uc.Repo.FindByID(ctx, id.UserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, repoError(err, "user", id.UserID)
	}

	now := entity.Timestamp(uc.Clock.Now())
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = id.Email
	}
	u = &entity.UserProfile{
		ID:        id.UserID,
		Email:     id.Email,
		Name:      name,
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			// created concurrently by another request
			return uc.Me(ctx, id)
		}
		return nil, repoError(err, "user", id.UserID)
	}
	uc.Log.Info("user profile created", zap.String("user_id", u.ID))
	return u, nil
}

func (uc *UserUseCase) UpdateMe(ctx context.Context, id Identity, patch ProfilePatch) (*entity.UserProfile, error) {
	u, err := uc.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Company != nil {
		u.Company = strings.TrimSpace(*patch.Company)
	}
	if patch.JobTitle != nil {
		u.JobTitle = strings.TrimSpace(*patch.JobTitle)
	}
	if patch.Timezone != nil {
		u.Timezone = strings.TrimSpace(*patch.Timezone)
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*patch.AvatarURL)
	}
	if errs := ValidateProfile(u); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	u.UpdatedAt = entity.Timestamp(uc.Clock.Now())
	if err := uc.Repo.Update(ctx, u); err != nil {
		return nil, repoError(err, "user", u.ID)
	}
	return u, nil
}

// Preferences returns stored preferences or the defaults.
func (uc *UserUseCase) Preferences(ctx context.Context, userID string) (*entity.UserPreferences, error) {
	p, err := uc.Repo.Preferences(ctx, userID)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.DefaultPreferences(userID, entity.Timestamp(uc.Clock.Now())), nil
	}
	if err != nil {
		return nil, repoError(err, "preferences", userID)
	}
	return p, nil
}

func (uc *UserUseCase) UpdatePreferences(ctx context.Context, id Identity, patch PreferencesPatch) (*entity.UserPreferences, error) {
	if _, err := uc.Me(ctx, id); err != nil {
		return nil, err
	}
	p, err := uc.Preferences(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	if patch.EmailNotifications != nil {
		p.EmailNotifications = *patch.EmailNotifications
	}
	if patch.TaskReminders != nil {
		p.TaskReminders = *patch.TaskReminders
	}
	if patch.WeeklyDigest != nil {
		p.WeeklyDigest = *patch.WeeklyDigest
	}
	if patch.Theme != nil {
		p.Theme = entity.Theme(strings.ToUpper(*patch.Theme))
	}
	if patch.DefaultPageSize != nil {
		p.DefaultPageSize = *patch.DefaultPageSize
	}
	if patch.DashboardRange != nil {
		p.DashboardRange = entity.DashboardRange(strings.ToUpper(*patch.DashboardRange))
	}
	if errs := ValidatePreferences(p); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	p.UpdatedAt = entity.Timestamp(uc.Clock.Now())
	if err := uc.Repo.SavePreferences(ctx, p); err != nil {
		return nil, repoError(err, "preferences", id.UserID)
	}
	return p, nil
}

// PageSize is the caller's default list size.
func (uc *UserUseCase) PageSize(ctx context.Context, userID string) int {
	p, err := uc.Preferences(ctx, userID)
	if err != nil {
		uc.Log.Warn("falling back to default page size", zap.String("user_id", userID), zap.Error(err))
		return entity.DefaultPageSize
	}
	return p.DefaultPageSize
}
