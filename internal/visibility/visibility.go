// Package visibility derives viewer-scoped views from raw wishlist items.
//
// Every function here is pure: it never mutates its input and the result
// depends only on the items and the viewer. A private item belonging to
// someone other than the viewer can never appear in any result.
package visibility

import (
	"sort"

	"github.com/learoder-max/Wishlist/internal/models"
)

// CanSee reports whether viewerID may see the item.
func CanSee(item *models.WishlistItem, viewerID string) bool {
	if item == nil {
		return false
	}
	return item.UserID == viewerID || !item.IsPrivate
}

// Feed returns every item the viewer may see, newest first.
func Feed(items []*models.WishlistItem, viewerID string) []*models.WishlistItem {
	feed := make([]*models.WishlistItem, 0, len(items))
	for _, item := range items {
		if CanSee(item, viewerID) {
			feed = append(feed, item)
		}
	}
	SortNewestFirst(feed)
	return feed
}

// ProfileItems is a user's wishlist split by privacy. Private is nil unless
// the viewer is the profile owner.
type ProfileItems struct {
	Public  []*models.WishlistItem
	Private []*models.WishlistItem
}

// Profile splits the items owned by profileUserID into public and private
// sections as seen by viewerID.
func Profile(items []*models.WishlistItem, profileUserID, viewerID string) ProfileItems {
	isOwner := profileUserID == viewerID

	out := ProfileItems{Public: []*models.WishlistItem{}}
	if isOwner {
		out.Private = []*models.WishlistItem{}
	}

	for _, item := range items {
		if item == nil || item.UserID != profileUserID {
			continue
		}
		switch {
		case !item.IsPrivate:
			out.Public = append(out.Public, item)
		case isOwner:
			out.Private = append(out.Private, item)
		}
	}

	SortNewestFirst(out.Public)
	SortNewestFirst(out.Private)
	return out
}

// PublicCount returns the number of public items owned by userID.
func PublicCount(items []*models.WishlistItem, userID string) int {
	n := 0
	for _, item := range items {
		if item != nil && item.UserID == userID && !item.IsPrivate {
			n++
		}
	}
	return n
}

// SortNewestFirst orders items by CreatedAt descending. Ties go to the later
// insertion, then to the greater ID, so the result never depends on the
// input order.
func SortNewestFirst(items []*models.WishlistItem) {
	sort.SliceStable(items, func(a, b int) bool {
		x, y := items[a], items[b]
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.After(y.CreatedAt)
		}
		if x.Seq != y.Seq {
			return x.Seq > y.Seq
		}
		return x.ID > y.ID
	})
}
