package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	buttonNew      = "➕ New"
	buttonRecent   = "🧾 Recent"
	buttonAccounts = "🏦 Accounts"
	buttonChart    = "📊 Chart"
	buttonHelp     = "❓ Help"
	buttonCancel   = "🚫 Cancel"
)

// buttonCommands maps reply-keyboard labels to the commands they stand for.
var buttonCommands = map[string]string{
	buttonNew:      "new",
	buttonRecent:   "/recent",
	buttonAccounts: "/accounts",
	buttonChart:    commandChart,
	buttonHelp:     "/help",
	buttonCancel:   "/cancel",
}

func getMainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonNew),
			tgbotapi.NewKeyboardButton(buttonRecent),
			tgbotapi.NewKeyboardButton(buttonAccounts),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonChart),
			tgbotapi.NewKeyboardButton(buttonHelp),
			tgbotapi.NewKeyboardButton(buttonCancel),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// normalizeInput turns keyboard labels and Telegram commands (including the
// "/cmd@botname" form) into the plain text the engine understands.
func normalizeInput(message *tgbotapi.Message) string {
	text := strings.TrimSpace(message.Text)
	if cmd, ok := buttonCommands[text]; ok {
		return cmd
	}
	if message.IsCommand() {
		return "/" + strings.ToLower(message.Command())
	}
	return text
}
