package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/draft"
	"github.com/learoder-max/Wishlist/internal/format"
	"github.com/learoder-max/Wishlist/internal/models"
	"github.com/learoder-max/Wishlist/internal/service"
	"github.com/learoder-max/Wishlist/internal/telegram"
)

// minIDPrefix is the shortest accepted abbreviation of an item id.
const minIDPrefix = 6

// deleteCallbackPrefix routes the delete confirmation keyboard.
const deleteCallbackPrefix = "del"

// wishHandler carries what every wishlist command needs. The bot always
// acts for a single configured viewer.
type wishHandler struct {
	svc      *service.Service
	viewerID string
	logger   *logrus.Logger
}

func (h *wishHandler) reply(bot telegram.Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// itemLine renders one wish as a single Markdown line.
func itemLine(item *models.WishlistItem) string {
	var b strings.Builder
	if item.IsPrivate {
		b.WriteString("🔒 ")
	}
	fmt.Fprintf(&b, "*%s*", esc(item.Title))
	if label := format.Price(item.Price, item.Currency); label != "" {
		fmt.Fprintf(&b, " · %s", esc(label))
	}
	fmt.Fprintf(&b, " `%s`", shortID(item.ID))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveItem finds one of the viewer's items by id or unique id prefix.
func (h *wishHandler) resolveItem(ctx context.Context, ref string) (*models.WishlistItem, error) {
	p, err := h.svc.Profile(ctx, h.viewerID, h.viewerID)
	if err != nil {
		return nil, err
	}

	var match *models.WishlistItem
	for _, item := range append(p.Public, p.Private...) {
		if item.ID == ref {
			return item, nil
		}
		if len(ref) >= minIDPrefix && strings.HasPrefix(item.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("id %q is ambiguous: %w", ref, service.ErrItemNotFound)
			}
			match = item
		}
	}
	if match == nil {
		return nil, fmt.Errorf("wish item %s: %w", ref, service.ErrItemNotFound)
	}
	return match, nil
}

// ---------------------------------------------------------------------------
// FeedHandler – /feed
// ---------------------------------------------------------------------------

// FeedHandler shows every wish the viewer can see, newest first.
type FeedHandler struct{ wishHandler }

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(svc *service.Service, viewerID string, logger *logrus.Logger) *FeedHandler {
	return &FeedHandler{wishHandler{svc: svc, viewerID: viewerID, logger: logger}}
}

// Handle processes the /feed command.
func (h *FeedHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	entries, err := h.svc.Feed(context.Background(), h.viewerID)
	if err != nil {
		return fmt.Errorf("get feed: %w", err)
	}

	if len(entries) == 0 {
		return h.reply(bot, message.Chat.ID, "🎁 No wishes yet. Add one with /wish!")
	}

	var b strings.Builder
	b.WriteString("🎁 *Latest wishes*\n")
	for _, e := range entries {
		owner := e.Item.UserID
		if e.Owner != nil {
			owner = e.Owner.DisplayName()
		}
		if e.Item.UserID == h.viewerID {
			owner = "You"
		}
		fmt.Fprintf(&b, "\n%s\n   _%s_", itemLine(e.Item), esc(owner))
	}
	return h.reply(bot, message.Chat.ID, b.String())
}

// ---------------------------------------------------------------------------
// FriendsHandler – /friends
// ---------------------------------------------------------------------------

// FriendsHandler lists the other users and how many public wishes they have.
type FriendsHandler struct{ wishHandler }

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(svc *service.Service, viewerID string, logger *logrus.Logger) *FriendsHandler {
	return &FriendsHandler{wishHandler{svc: svc, viewerID: viewerID, logger: logger}}
}

// Handle processes the /friends command.
func (h *FriendsHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	friends, err := h.svc.Friends(context.Background(), h.viewerID)
	if err != nil {
		return fmt.Errorf("get friends: %w", err)
	}

	if len(friends) == 0 {
		return h.reply(bot, message.Chat.ID, "👥 No friends yet.")
	}

	var b strings.Builder
	b.WriteString("👥 *Friends*\n")
	for _, f := range friends {
		fmt.Fprintf(&b, "\n*%s* `%s` · %d wishes", esc(f.User.DisplayName()), esc(f.User.ID), f.PublicItems)
		if f.User.Bio != "" {
			fmt.Fprintf(&b, "\n   _%s_", esc(f.User.Bio))
		}
	}
	return h.reply(bot, message.Chat.ID, b.String())
}

// ---------------------------------------------------------------------------
// ProfileHandler – /profile [userId]
// ---------------------------------------------------------------------------

// ProfileHandler shows one user's wish list. The private section only
// appears on the viewer's own profile.
type ProfileHandler struct{ wishHandler }

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.Service, viewerID string, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{wishHandler{svc: svc, viewerID: viewerID, logger: logger}}
}

// Handle processes the /profile command.
func (h *ProfileHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	userID := h.viewerID
	if len(args) > 0 {
		userID = args[0]
	}

	p, err := h.svc.Profile(context.Background(), userID, h.viewerID)
	if errors.Is(err, service.ErrUserNotFound) {
		return h.reply(bot, message.Chat.ID, fmt.Sprintf("❌ No user with id `%s`.", esc(userID)))
	}
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 *%s*", esc(p.User.DisplayName()))
	if p.User.Bio != "" {
		fmt.Fprintf(&b, "\n_%s_", esc(p.User.Bio))
	}

	b.WriteString("\n\n*Wishes*")
	if len(p.Public) == 0 {
		b.WriteString("\nNothing here yet.")
	}
	for _, item := range p.Public {
		b.WriteString("\n" + itemLine(item))
	}

	if p.IsViewer {
		b.WriteString("\n\n🔒 *Only you can see*")
		if len(p.Private) == 0 {
			b.WriteString("\nNothing here yet.")
		}
		for _, item := range p.Private {
			b.WriteString("\n" + itemLine(item))
		}
	}
	return h.reply(bot, message.Chat.ID, b.String())
}

// ---------------------------------------------------------------------------
// WishAddHandler – /wish <url> [title]
// ---------------------------------------------------------------------------

// WishAddHandler adds a wish from a link. Without a title the details are
// inferred from the link; the wish is added even when that fails.
type WishAddHandler struct{ wishHandler }

// NewWishAddHandler creates a new WishAddHandler.
func NewWishAddHandler(svc *service.Service, viewerID string, logger *logrus.Logger) *WishAddHandler {
	return &WishAddHandler{wishHandler{svc: svc, viewerID: viewerID, logger: logger}}
}

// Handle processes the /wish command.
func (h *WishAddHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		return h.reply(bot, message.Chat.ID,
			"❌ Please provide a link.\n"+
				"Usage: `/wish https://shop.example.com/lamp Desk lamp`")
	}

	ctx := context.Background()
	url := args[0]
	title := strings.Join(args[1:], " ")

	d, err := h.svc.OpenDraft(ctx, h.viewerID, "")
	if err != nil {
		return fmt.Errorf("open draft: %w", err)
	}
	draftID := d.ID

	patch := draft.FieldsPatch{URL: &url}
	if title != "" {
		patch.Title = &title
	}
	if d, err = h.svc.EditDraft(h.viewerID, draftID, patch); err != nil {
		_ = h.svc.DiscardDraft(h.viewerID, draftID)
		return fmt.Errorf("edit draft: %w", err)
	}

	if title == "" {
		if d, err = h.svc.Autofill(ctx, h.viewerID, draftID); err != nil {
			_ = h.svc.DiscardDraft(h.viewerID, draftID)
			return fmt.Errorf("auto-fill draft: %w", err)
		}
	}

	item, err := h.svc.CommitDraft(ctx, h.viewerID, draftID)
	if err != nil {
		_ = h.svc.DiscardDraft(h.viewerID, draftID)
		return fmt.Errorf("commit draft: %w", err)
	}

	text := "🎁 *Added to your wish list!*\n\n" + itemLine(item)
	if item.Description != "" {
		text += "\n_" + esc(item.Description) + "_"
	}
	if d.Advisory != "" {
		text += "\n\n⚠️ " + esc(d.Advisory)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": h.viewerID,
		"item_id": item.ID,
	}).Info("Wish item added from Telegram")

	return h.reply(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// VisibilityHandler – /private <id>, /public <id>
// ---------------------------------------------------------------------------

// VisibilityHandler hides a wish from friends or shares it again.
type VisibilityHandler struct {
	wishHandler
	private bool
}

// NewVisibilityHandler creates a handler that sets items private or public.
func NewVisibilityHandler(svc *service.Service, viewerID string, private bool, logger *logrus.Logger) *VisibilityHandler {
	return &VisibilityHandler{wishHandler: wishHandler{svc: svc, viewerID: viewerID, logger: logger}, private: private}
}

// Handle processes the /private and /public commands.
func (h *VisibilityHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		return h.reply(bot, message.Chat.ID, "❌ Please provide a wish id.")
	}

	ctx := context.Background()
	item, err := h.resolveItem(ctx, args[0])
	if errors.Is(err, service.ErrItemNotFound) {
		return h.reply(bot, message.Chat.ID, "❌ "+esc(err.Error()))
	}
	if err != nil {
		return fmt.Errorf("resolve item: %w", err)
	}

	item, err = h.svc.UpdateItem(ctx, h.viewerID, item.ID, models.ItemPatch{IsPrivate: &h.private})
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	status := "👀 Friends can see it now."
	if item.IsPrivate {
		status = "🔒 Only you can see it now."
	}
	return h.reply(bot, message.Chat.ID, itemLine(item)+"\n"+status)
}

// ---------------------------------------------------------------------------
// DeleteHandler – /delete <id> and its confirmation keyboard
// ---------------------------------------------------------------------------

// DeleteHandler asks for confirmation with an inline keyboard; the actual
// deletion happens in HandleCallback once the user answers.
type DeleteHandler struct{ wishHandler }

// NewDeleteHandler creates a new DeleteHandler.
func NewDeleteHandler(svc *service.Service, viewerID string, logger *logrus.Logger) *DeleteHandler {
	return &DeleteHandler{wishHandler{svc: svc, viewerID: viewerID, logger: logger}}
}

// Handle processes the /delete command.
func (h *DeleteHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		return h.reply(bot, message.Chat.ID, "❌ Please provide a wish id.")
	}

	item, err := h.resolveItem(context.Background(), args[0])
	if errors.Is(err, service.ErrItemNotFound) {
		return h.reply(bot, message.Chat.ID, "❌ "+esc(err.Error()))
	}
	if err != nil {
		return fmt.Errorf("resolve item: %w", err)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, "🗑 "+esc(service.DeletePrompt)+"\n\n"+itemLine(item))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete", deleteCallbackData(true, item.ID)),
			tgbotapi.NewInlineKeyboardButtonData("No", deleteCallbackData(false, item.ID)),
		),
	)
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	return nil
}

func deleteCallbackData(yes bool, itemID string) string {
	answer := "no"
	if yes {
		answer = "yes"
	}
	return strings.Join([]string{deleteCallbackPrefix, answer, itemID}, telegram.CallbackSeparator)
}

// CallbackPrefix is the callback data prefix HandleCallback expects.
func (h *DeleteHandler) CallbackPrefix() string { return deleteCallbackPrefix }

// HandleCallback applies the answer from the confirmation keyboard and
// replaces the prompt with the outcome.
func (h *DeleteHandler) HandleCallback(bot telegram.Sender, query *tgbotapi.CallbackQuery, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("malformed delete callback %q", query.Data)
	}

	outcome, err := h.svc.DeleteItem(context.Background(), h.viewerID, args[1], service.Answer(args[0] == "yes"))
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	var text string
	switch outcome {
	case service.DeleteRemoved:
		text = "🗑 Wish deleted."
	case service.DeleteDeclined:
		text = "👌 Kept it."
	default:
		text = "🤷 That wish is already gone."
	}

	if query.Message == nil {
		_, err = bot.Send(tgbotapi.NewMessage(query.From.ID, text))
	} else {
		_, err = bot.Send(tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text))
	}
	if err != nil {
		return fmt.Errorf("failed to send delete outcome: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"item_id": args[1],
		"outcome": outcome.String(),
	}).Info("Handled delete confirmation")
	return nil
}
