package conversation

const (
	msgMainMenu = "👋 What would you like to do?\n\n" +
		"• new: record a transaction\n" +
		"• recent: show the last transactions\n" +
		"• accounts: list your accounts\n" +
		"• help: show all commands"

	msgHelp = "❓ Commands:\n\n" +
		"• new, add, /add: start recording a transaction\n" +
		"• recent, /recent: show the last 5 transactions\n" +
		"• accounts, /accounts: list your accounts\n" +
		"• back, /back, menu: leave the current step and show the menu\n" +
		"• cancel, /cancel: discard the transaction in progress\n" +
		"• refresh, /refresh: reload accounts and categories\n" +
		"• help, /help: show this message\n\n" +
		"While recording, reply with a number from the list or the exact name shown."

	msgCancelled = "🚫 Cancelled. Nothing was saved.\n\n" + msgMainMenu

	msgSelectType = "What kind of transaction is it?\n\n" +
		"1. 💸 Expense\n" +
		"2. 💰 Income\n\n" +
		"Reply with 1 or 2."

	msgInvalidType = "❌ Please reply with 1 (expense) or 2 (income), or send cancel."

	msgInvalidAccount  = "❌ No account matches that. Reply with a number from the list or the exact account name."
	msgInvalidCategory = "❌ No category matches that. Reply with a number from the list or the exact category name."

	msgSelectAccountFooter = "\n\nReply with the number or the name of the account."

	msgDetailsHint = "❌ I couldn't read that. Send the amount and a description, for example:\n%s\n\nor send cancel."

	msgEnterDetails = "🏦 Account: %s\n\nNow send the amount and a description, for example:\n%s"

	msgNoAccounts = "❌ There are no accounts to record a transaction against. Add an account in your finance app and try again."

	msgNotReady = "⚠️ The bot is not configured yet: accounts and categories could not be loaded from the finance service. Please try again later."

	msgNoCategoriesFooter = "\n\nSend refresh once one exists and then the amount again, or send cancel."

	msgRefreshed     = "🔄 Reloaded %d accounts and %d categories."
	msgRefreshFailed = "❌ Could not reload accounts and categories: %s"

	msgRecentFailed = "❌ Could not load recent transactions: %s"

	msgSubmitFailed = "❌ Failed to save the transaction: %s\n\nReply with a category to try again, or send cancel."

	msgSaved = "✅ Transaction saved!\n\n%s %s · %s\n📁 %s\n🏦 %s\n📅 %s"

	exampleExpense = "25.50 Coffee"
	exampleIncome  = "1500 Salary"
)
