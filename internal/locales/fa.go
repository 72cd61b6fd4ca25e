package locales

import tb "gopkg.in/telebot.v3"

var fa = Locale{
	StartMessage:                "به ماشیناتو خوش آمدید! برای اتصال حساب‌های خود /login را بزنید.",
	HelpMessage:                 "دستورات:\n/login ورود و اتصال حساب‌ها\n/whoami نمایش کاربر فعلی\n/account نمایش یا تغییر حساب فعال\n/notifications تنظیمات اعلان‌ها\n/notify <i>نوع</i> on|off روشن یا خاموش کردن یک نوع اعلان\n/logout خروج",
	LoginPromptMessage:          "برای استفاده از ربات، ابتدا وارد شوید.",
	LoginButtonText:             "🔑 ورود",
	LoginExpiredMessage:         "نشست شما منقضی شده است، لطفاً دوباره وارد شوید.",
	LoginSucceededMessage:       "✅ با موفقیت وارد شدید: <b>%s</b>\nحساب فعال: <b>%s</b>\n\nبرای راهنما /help را بزنید.",
	LoginSucceededNoAccount:     "✅ با موفقیت وارد شدید: <b>%s</b>، اما هنوز حسابی به شما متصل نیست.",
	LoginFailedMessage:          "❌ خطا در ورود. لطفاً دوباره تلاش کنید.",
	AlreadyLoggedInMessage:      "شما قبلاً وارد شده‌اید؛ /whoami را ببینید یا ابتدا /logout کنید.",
	LogoutSucceededMessage:      "با موفقیت خارج شدید.",
	NotLoggedInMessage:          "شما وارد نشده‌اید.",
	WhoAmIMessage:               "👤 <b>%s</b>\nحساب‌ها: %s\nحساب فعال: <b>%s</b>\nادمین: %s",
	AccountListHeader:           "حساب‌های شما (برای تغییر /account <i>نام</i>):",
	AccountSelectedMessage:      "حساب فعال: <b>%s</b>",
	AccountNotAuthorizedMessage: "⛔ شما به این حساب دسترسی ندارید.",
	NoAccountsMessage:           "<i>حسابی متصل نیست</i>",
	NotificationsHeader:         "🔔 تنظیمات اعلان‌ها",
	NotificationsUsage:          "استفاده: /notify <i>نوع</i> on|off",
	NotificationEnabledMessage:  "🔔 اعلان‌های <code>%s</code> روشن شد.",
	NotificationDisabledMessage: "🔕 اعلان‌های <code>%s</code> خاموش شد.",
	TooManyRequestsMessage:      "<i>درخواست‌ها بیش از حد است، لطفاً بعداً تلاش کنید.</i>",
	InternalErrorMessage:        "🤖 <i>خطای داخلی رخ داد</i>",
	CallbackSucceededPageTitle:  "ورود موفق",
	CallbackSucceededPageBody:   "اکنون می‌توانید این صفحه را ببندید و به تلگرام برگردید.",
	CallbackFailedPageTitle:     "خطا در ورود",
	CallbackFailedPageBody:      "❌ خطا در ورود. لطفاً /login را دوباره به ربات بفرستید.",
	Yes:                         "بله",
	No:                          "خیر",
	Unknown:                     "؟",
	EventSearchStarted:          "🔍 جستجو شروع شد\nحساب: %s",
	EventSearchCompleted:        "✅ جستجو تکمیل شد!\n🚙 %s\n📍 %s",
	EventSearchStopped:          "⏹ جستجو متوقف شد\nحساب: %s",
	EventSearchError:            "❌ خطا در جستجو\nحساب: %s\n%s",
	EventRentalBooked:           "✅ اجاره رزرو شد!\n🚙 %s\nحساب: %s",
	EventRentalCancelled:        "❌ اجاره لغو شد\n🚙 %s\nحساب: %s",
	EventRentalTripStarted:      "▶️ سفر شروع شد\n🚙 %s\nحساب: %s",
	EventRentalTripEnded:        "⏹ سفر پایان یافت\n🚙 %s\nحساب: %s",
	EventRentalExtended:         "⏰ اجاره تمدید شد\n🚙 %s\nحساب: %s",
	EventRentalTransferred:      "🔄 اجاره انتقال یافت\n🚙 %s\nاز: %s → به: %s",
	EventOptimizationSwap:       "🔄 خودرو بهتر پیدا شد!\n🚙 %s\n📊 امتیاز: %s",
	EventGeneric:                "🔔 <b>%s</b>\n<pre>%s</pre>",
	CommandsMenu: []tb.Command{
		{Text: "login", Description: "ورود و اتصال حساب‌ها"},
		{Text: "whoami", Description: "نمایش کاربر فعلی"},
		{Text: "account", Description: "نمایش یا تغییر حساب فعال"},
		{Text: "notifications", Description: "تنظیمات اعلان‌ها"},
		{Text: "help", Description: "راهنما"},
		{Text: "logout", Description: "خروج"},
	},
}
