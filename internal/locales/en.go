package locales

import tb "gopkg.in/telebot.v3"

var en = Locale{
	StartMessage:                "Welcome to Mashinato! Please /login to link your Communauto accounts.",
	HelpMessage:                 "You can use:\n/login to link your accounts\n/whoami to show who you are logged-in as\n/account to list or switch the active account\n/notifications to show your notification settings\n/notify <i>type</i> on|off to toggle a notification type\n/logout to unlink the bot",
	LoginPromptMessage:          "Please log in to use the bot.",
	LoginButtonText:             "🔑 Log in",
	LoginExpiredMessage:         "Your session has expired, please log in again.",
	LoginSucceededMessage:       "✅ Logged in as <b>%s</b>.\nActive account: <b>%s</b>\n\nSee /help for what you can do.",
	LoginSucceededNoAccount:     "✅ Logged in as <b>%s</b>, but no account is linked to you yet.",
	LoginFailedMessage:          "❌ The login failed, please try /login again.",
	AlreadyLoggedInMessage:      "You are already logged-in, check /whoami; or /logout first.",
	LogoutSucceededMessage:      "You have successfully logged out.",
	NotLoggedInMessage:          "You are not logged-in.",
	WhoAmIMessage:               "👤 <b>%s</b>\nAccounts: %s\nActive account: <b>%s</b>\nAdmin: %s",
	AccountListHeader:           "Your accounts (tap /account <i>name</i> to switch):",
	AccountSelectedMessage:      "Active account set to <b>%s</b>.",
	AccountNotAuthorizedMessage: "⛔ You don't have access to this account.",
	NoAccountsMessage:           "<i>No linked accounts</i>",
	NotificationsHeader:         "🔔 Notifications",
	NotificationsUsage:          "Usage: /notify <i>type</i> on|off",
	NotificationEnabledMessage:  "🔔 <code>%s</code> notifications enabled.",
	NotificationDisabledMessage: "🔕 <code>%s</code> notifications disabled.",
	TooManyRequestsMessage:      "<i>Too many requests, please try again later.</i>",
	InternalErrorMessage:        "🤖 <i>An internal error has occurred</i>",
	CallbackSucceededPageTitle:  "Logged in",
	CallbackSucceededPageBody:   "You can now close this browser tab and return to Telegram.",
	CallbackFailedPageTitle:     "Login failed",
	CallbackFailedPageBody:      "The login could not be completed, please send /login to the bot and try again.",
	Yes:                         "yes",
	No:                          "no",
	Unknown:                     "?",
	EventSearchStarted:          "🔍 Search started\nAccount: %s",
	EventSearchCompleted:        "✅ Search completed!\n🚙 %s\n📍 %s",
	EventSearchStopped:          "⏹ Search stopped\nAccount: %s",
	EventSearchError:            "❌ Search failed\nAccount: %s\n%s",
	EventRentalBooked:           "✅ Rental booked!\n🚙 %s\nAccount: %s",
	EventRentalCancelled:        "❌ Rental cancelled\n🚙 %s\nAccount: %s",
	EventRentalTripStarted:      "▶️ Trip started\n🚙 %s\nAccount: %s",
	EventRentalTripEnded:        "⏹ Trip ended\n🚙 %s\nAccount: %s",
	EventRentalExtended:         "⏰ Rental extended\n🚙 %s\nAccount: %s",
	EventRentalTransferred:      "🔄 Rental transferred\n🚙 %s\nFrom: %s → To: %s",
	EventOptimizationSwap:       "🔄 Found a better vehicle!\n🚙 %s\n📊 Score: %s",
	EventGeneric:                "🔔 <b>%s</b>\n<pre>%s</pre>",
	CommandsMenu: []tb.Command{
		{Text: "login", Description: "Link your accounts"},
		{Text: "whoami", Description: "Show who you are logged-in as"},
		{Text: "account", Description: "List or switch the active account"},
		{Text: "notifications", Description: "Show notification settings"},
		{Text: "help", Description: "Show help"},
		{Text: "logout", Description: "Unlink the bot"},
	},
}
