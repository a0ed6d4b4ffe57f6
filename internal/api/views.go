package api

import (
	"github.com/learoder-max/Wishlist/internal/format"
	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/service"
)

type userView struct {
	*models.User
	IsViewer bool `json:"isViewer"`
}

type itemView struct {
	*models.WishlistItem
	PriceLabel string    `json:"priceLabel,omitempty"`
	Owner      *userView `json:"owner,omitempty"`
}

func newUserView(u *models.User, viewerID string) *userView {
	if u == nil {
		return nil
	}
	return &userView{User: u, IsViewer: u.ID == viewerID}
}

func newItemView(item *models.WishlistItem) itemView {
	return itemView{WishlistItem: item, PriceLabel: format.Price(item.Price, item.Currency)}
}

func newItemViews(items []*models.WishlistItem) []itemView {
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = newItemView(item)
	}
	return views
}

// feedView carries an explicit empty marker so clients can render the empty
// state without inspecting the list.
type feedView struct {
	Items []itemView `json:"items"`
	Empty bool       `json:"empty"`
}

func newFeedView(entries []service.FeedEntry, viewerID string) feedView {
	views := make([]itemView, len(entries))
	for i, e := range entries {
		views[i] = newItemView(e.Item)
		views[i].Owner = newUserView(e.Owner, viewerID)
	}
	return feedView{Items: views, Empty: len(views) == 0}
}

type friendView struct {
	*models.User
	PublicItems int `json:"publicItems"`
}

type profileView struct {
	User    *userView  `json:"user"`
	Public  []itemView `json:"public"`
	Private []itemView `json:"private,omitempty"`
}

func newProfileView(p *service.ProfileView, viewerID string) profileView {
	v := profileView{
		User:   newUserView(p.User, viewerID),
		Public: newItemViews(p.Public),
	}
	if p.IsViewer {
		v.Private = newItemViews(p.Private)
	}
	return v
}
