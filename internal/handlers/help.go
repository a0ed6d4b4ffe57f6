package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/learoder-max/Wishlist/internal/telegram"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *Wishlist Help*

*Browse:*
• /feed - Newest wishes you can see
• /friends - Everyone else and their public wish count
• /profile [user id] - A wish list (yours by default)

*Your wishes:*
• /wish <url> [title] - Add a wish; details are filled in from the link
• /private <id> - Hide a wish from friends
• /public <id> - Share a wish with friends
• /delete <id> - Delete a wish

_Wish ids can be shortened to their first 6 characters._`

	msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
