package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// CallbackSeparator splits the fields of inline keyboard callback data.
const CallbackSeparator = ":"

// Router handles message routing and command parsing
type Router struct {
	logger    *logrus.Logger
	ownerID   int64
	handlers  map[string]CommandHandler
	callbacks map[string]CallbackHandler
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot Sender, message *tgbotapi.Message, args []string) error
}

// CallbackHandler handles inline keyboard presses. args are the callback
// data fields after the routing prefix.
type CallbackHandler interface {
	HandleCallback(bot Sender, query *tgbotapi.CallbackQuery, args []string) error
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger, ownerID int64) *Router {
	return &Router{
		logger:    logger,
		ownerID:   ownerID,
		handlers:  make(map[string]CommandHandler),
		callbacks: make(map[string]CallbackHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// RegisterCallback registers a handler for callback data starting with prefix
func (r *Router) RegisterCallback(prefix string, handler CallbackHandler) {
	r.callbacks[prefix] = handler
	r.logger.Debugf("Registered callback: %s", prefix)
}

// HandleUpdate dispatches an update and recovers from handler panics
func (r *Router) HandleUpdate(bot Sender, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("Panic in update handler: %v", rec)
		}
	}()

	if update.Message != nil {
		r.HandleMessage(bot, update.Message)
	} else if update.CallbackQuery != nil {
		r.HandleCallbackQuery(bot, update.CallbackQuery)
	}
}

func (r *Router) allowed(from *tgbotapi.User) bool {
	if r.ownerID == 0 {
		return true
	}
	return from != nil && from.ID == r.ownerID
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(bot Sender, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	// Log the incoming message
	r.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    message.From.ID,
		"username":   message.From.UserName,
		"message_id": message.MessageID,
	}).Info("Received message")

	if !r.allowed(message.From) {
		r.logger.WithField("user_id", message.From.ID).Warn("Ignoring message from non-owner")
		return
	}

	// Only process text commands
	if message.Text == "" || !message.IsCommand() {
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	// Find and execute handler
	if handler, exists := r.handlers[command]; exists {
		if err := handler.Handle(bot, message, args); err != nil {
			r.logger.WithFields(logrus.Fields{
				"command": command,
				"chat_id": message.Chat.ID,
				"user_id": message.From.ID,
				"error":   err,
			}).Error("Command handler failed")

			// Send error message to user
			errorMsg := tgbotapi.NewMessage(message.Chat.ID, "❌ An error occurred while processing your command. Please try again.")
			bot.Send(errorMsg)
		}
	} else {
		// Unknown command
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).Warn("Unknown command")

		unknownMsg := tgbotapi.NewMessage(message.Chat.ID, "❓ Unknown command. Use /help to see available commands.")
		bot.Send(unknownMsg)
	}
}

// HandleCallbackQuery handles callback queries from inline keyboards
func (r *Router) HandleCallbackQuery(bot Sender, callbackQuery *tgbotapi.CallbackQuery) {
	if callbackQuery.From == nil {
		return
	}

	// Log the callback query
	r.logger.WithFields(logrus.Fields{
		"callback_id": callbackQuery.ID,
		"user_id":     callbackQuery.From.ID,
		"data":        callbackQuery.Data,
	}).Info("Received callback query")

	// Answer the callback query to remove loading state
	callback := tgbotapi.NewCallback(callbackQuery.ID, "")
	bot.Request(callback)

	if !r.allowed(callbackQuery.From) {
		r.logger.WithField("user_id", callbackQuery.From.ID).Warn("Ignoring callback from non-owner")
		return
	}

	parts := strings.Split(callbackQuery.Data, CallbackSeparator)
	handler, exists := r.callbacks[parts[0]]
	if !exists {
		r.logger.WithField("data", callbackQuery.Data).Warn("Unknown callback")
		return
	}

	if err := handler.HandleCallback(bot, callbackQuery, parts[1:]); err != nil {
		r.logger.WithFields(logrus.Fields{
			"data":    callbackQuery.Data,
			"user_id": callbackQuery.From.ID,
			"error":   err,
		}).Error("Callback handler failed")
	}
}
