package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository"
)

// UpdateUserProfile merges patch onto the viewer's own profile. The user ID
// is immutable and a profile can only be edited by its owner.
func (s *Service) UpdateUserProfile(ctx context.Context, viewerID string, patch models.UserPatch) (*models.User, error) {
	user, err := s.User(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return user, nil
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be blank", ErrInvalidProfile)
		}
		patch.Name = &name
	}

	oldAvatar := user.Avatar
	user.Apply(patch)

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", viewerID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to update user %s: %w", viewerID, err)
	}
	if oldAvatar != updated.Avatar {
		s.releaseRef(viewerID, oldAvatar)
	}

	s.logger.WithField("user_id", viewerID).Info("Updated user profile")
	return updated, nil
}

// SetAvatar stores an uploaded image and makes it the viewer's avatar.
func (s *Service) SetAvatar(ctx context.Context, viewerID string, r io.Reader) (*models.User, error) {
	if s.media == nil {
		return nil, ErrUploadsDisabled
	}
	if _, err := s.User(ctx, viewerID); err != nil {
		return nil, err
	}

	h, err := s.media.Create(viewerID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	user, err := s.UpdateUserProfile(ctx, viewerID, models.UserPatch{Avatar: &h.Ref})
	if err != nil {
		s.media.Release(h.ID)
		return nil, err
	}
	return user, nil
}

// OpenMedia returns the content of an uploaded image.
func (s *Service) OpenMedia(id string) (io.ReadSeeker, string, bool) {
	if s.media == nil {
		return nil, "", false
	}
	return s.media.Open(id)
}
