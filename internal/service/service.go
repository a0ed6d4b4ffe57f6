package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/draft"
	"github.com/learoder-max/Wishlist/internal/inference"
	"github.com/learoder-max/Wishlist/internal/media"
	"github.com/learoder-max/Wishlist/internal/metrics"
	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/repository"
	"github.com/learoder-max/Wishlist/internal/visibility"
)

// Service is the central business logic layer. It is the only way to read
// viewer-scoped data: every query and mutation takes the viewer explicitly,
// and the repositories are not exposed.
type Service struct {
	logger   *logrus.Logger
	users    repository.UserRepository
	items    repository.ItemRepository
	analyzer inference.Analyzer
	media    *media.Store
	drafts   *draft.Manager
	metrics  *metrics.Metrics
	validate *validator.Validate

	now   func() time.Time
	newID func() string
}

// New creates a new Service with all required dependencies. A nil analyzer
// disables auto-fill; a nil media store disables uploads.
func New(logger *logrus.Logger,
	users repository.UserRepository,
	items repository.ItemRepository,
	analyzer inference.Analyzer,
	store *media.Store,
	drafts *draft.Manager,
	m *metrics.Metrics,
) *Service {
	if analyzer == nil {
		analyzer = inference.Disabled{}
	}
	if drafts == nil {
		var rel draft.Releaser
		if store != nil {
			rel = store
		}
		drafts = draft.NewManager(rel, 0, logger)
	}
	return &Service{
		logger: logger, users: users, items: items,
		analyzer: analyzer, media: store, drafts: drafts, metrics: m,
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// FeedEntry is one visible item together with its owner.
type FeedEntry struct {
	Item  *models.WishlistItem
	Owner *models.User
}

// ProfileView is a user's wishlist as seen by a viewer. Private is nil
// unless the viewer owns the profile.
type ProfileView struct {
	User     *models.User
	IsViewer bool
	Public   []*models.WishlistItem
	Private  []*models.WishlistItem
}

// FriendSummary describes another user and how many public wishes they have.
type FriendSummary struct {
	User        *models.User
	PublicItems int
}

// User returns the user with the given ID.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user %s: %w", id, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return user, nil
}

// Users returns every user in bootstrap order.
func (s *Service) Users(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Feed returns every item visible to viewerID, newest first.
func (s *Service) Feed(ctx context.Context, viewerID string) ([]FeedEntry, error) {
	if _, err := s.User(ctx, viewerID); err != nil {
		return nil, err
	}

	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wish items: %w", err)
	}
	owners, err := s.userIndex(ctx)
	if err != nil {
		return nil, err
	}

	visible := visibility.Feed(items, viewerID)
	entries := make([]FeedEntry, len(visible))
	for i, item := range visible {
		entries[i] = FeedEntry{Item: item, Owner: owners[item.UserID]}
	}
	return entries, nil
}

// Profile returns profileUserID's wishlist as seen by viewerID.
func (s *Service) Profile(ctx context.Context, profileUserID, viewerID string) (*ProfileView, error) {
	if _, err := s.User(ctx, viewerID); err != nil {
		return nil, err
	}
	user, err := s.User(ctx, profileUserID)
	if err != nil {
		return nil, err
	}

	items, err := s.items.ListByUser(ctx, profileUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wish items of %s: %w", profileUserID, err)
	}

	split := visibility.Profile(items, profileUserID, viewerID)
	return &ProfileView{
		User:     user,
		IsViewer: profileUserID == viewerID,
		Public:   split.Public,
		Private:  split.Private,
	}, nil
}

// Friends lists every user other than viewerID with their public item count.
func (s *Service) Friends(ctx context.Context, viewerID string) ([]FriendSummary, error) {
	if _, err := s.User(ctx, viewerID); err != nil {
		return nil, err
	}

	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wish items: %w", err)
	}

	friends := make([]FriendSummary, 0, len(users))
	for _, u := range users {
		if u.ID == viewerID {
			continue
		}
		friends = append(friends, FriendSummary{User: u, PublicItems: visibility.PublicCount(items, u.ID)})
	}
	return friends, nil
}

func (s *Service) userIndex(ctx context.Context) (map[string]*models.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*models.User, len(users))
	for _, u := range users {
		idx[u.ID] = u
	}
	return idx, nil
}
