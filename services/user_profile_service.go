package services

import (
	"context"
	"errors"

	"github.com/go-kit/log/level"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/repository"
	"github.com/kasmail/kasmail-server/types"
)

// reads sender profiles (preferences, username). Profiles are managed by the
// settings flow; nothing here writes them.
type UserProfileService struct {
	userProfileRepo repository.Repository
	defaults        types.SendPreferences
}

type userProfileFindResult struct {
	Docs []*types.UserProfile `json:"docs"`
}

func NewUserProfileService(dbSelector repository.DBSelector, defaults types.SendPreferences) *UserProfileService {
	userProfileRepo, err := dbSelector.ChooseDB(repository.Profiles)
	if err != nil {
		panic(err)
	}
	return &UserProfileService{userProfileRepo: userProfileRepo, defaults: defaults}
}

// address is used as the profile _id
func (s *UserProfileService) Get(ctx context.Context, address string) (*types.UserProfile, error) {
	response, err := s.userProfileRepo.GetByID(ctx, address)
	if err != nil {
		return nil, err
	}
	var profile types.UserProfile
	if mErr := repository.MapToObject(response, &profile); mErr != nil {
		return nil, mErr
	}
	return &profile, nil
}

// SendPreferences loads the sender's preferences once per dispatch (never cached).
// A missing profile or an unset field falls back to the server defaults.
func (s *UserProfileService) SendPreferences(ctx context.Context, address string) (types.SendPreferences, error) {
	profile, err := s.Get(ctx, address)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return s.defaults, nil
		}
		level.Error(global.Logger).Log("msg", "failed to load profile", "address", address, "err", err)
		return s.defaults, err
	}
	prefs := s.defaults
	if profile.OnlyInternal != nil {
		prefs.OnlyInternal = *profile.OnlyInternal
	}
	return prefs, nil
}

// LookupUsername returns the wallet address registered for the exact (case-sensitive) username
func (s *UserProfileService) LookupUsername(ctx context.Context, username string) (string, error) {
	response, err := s.userProfileRepo.Find(ctx, map[string]interface{}{"username": username}, 1)
	if err != nil {
		return "", err
	}
	var result userProfileFindResult
	if mErr := repository.MapToObject(response, &result); mErr != nil {
		return "", mErr
	}
	for _, p := range result.Docs {
		if p.Username == username {
			if p.Address != "" {
				return p.Address, nil
			}
			return p.ID, nil
		}
	}
	return "", types.ErrNotFound
}

// SenderName returns the username the sender may appear under in external mail.
// Empty when the sender has no username or sends anonymously.
func (s *UserProfileService) SenderName(ctx context.Context, address string) string {
	profile, err := s.Get(ctx, address)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			level.Warn(global.Logger).Log("msg", "failed to load profile for sender name", "address", address, "err", err)
		}
		return ""
	}
	if profile.AnonymousMode {
		return ""
	}
	return profile.Username
}
