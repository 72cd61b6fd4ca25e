package locales

import tb "gopkg.in/telebot.v3"

// Locale represents a locale (group of translations)
type Locale struct {
	StartMessage                string
	HelpMessage                 string
	LoginPromptMessage          string
	LoginButtonText             string
	LoginExpiredMessage         string
	LoginSucceededMessage       string // username, active account
	LoginSucceededNoAccount     string // username
	LoginFailedMessage          string
	AlreadyLoggedInMessage      string
	LogoutSucceededMessage      string
	NotLoggedInMessage          string
	WhoAmIMessage               string // username, accounts, active account, admin
	AccountListHeader           string
	AccountSelectedMessage      string
	AccountNotAuthorizedMessage string
	NoAccountsMessage           string
	NotificationsHeader         string
	NotificationsUsage          string
	NotificationEnabledMessage  string
	NotificationDisabledMessage string
	TooManyRequestsMessage      string
	InternalErrorMessage        string
	CallbackSucceededPageTitle  string
	CallbackSucceededPageBody   string
	CallbackFailedPageTitle     string
	CallbackFailedPageBody      string
	Yes                         string
	No                          string
	Unknown                     string
	EventSearchStarted          string // account
	EventSearchCompleted        string // vehicle, account
	EventSearchStopped          string // account
	EventSearchError            string // account, error
	EventRentalBooked           string // vehicle, account
	EventRentalCancelled        string // vehicle, account
	EventRentalTripStarted      string // vehicle, account
	EventRentalTripEnded        string // vehicle, account
	EventRentalExtended         string // vehicle, account
	EventRentalTransferred      string // vehicle, account, target account
	EventOptimizationSwap       string // vehicle, score
	EventGeneric                string // type, payload
	CommandsMenu                []tb.Command
}

var defaultLocale *Locale

func init() {
	defaultLocale = &en
}

// Get returns a Locale by the given language code
func Get(languageCode string) *Locale {
	switch languageCode {
	case "fa":
		return &fa
	case "en":
		return &en
	default:
		return defaultLocale
	}
}
