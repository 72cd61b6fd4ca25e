package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/coolspring8/go-lolhtml"
	log "github.com/sirupsen/logrus"

	"MashinatoBot/internal/locales"
)

// maxGenericPayloadLength is the maximum length (in runes) of a payload rendered generically
const maxGenericPayloadLength = 500

// Render renders the event into a message ready to be sent with HTML parse mode.
// An empty result means there's nothing to send.
func Render(e Event, l *locales.Locale) string {
	if e.Malformed() {
		return generic(e.Type, string(e.Raw), l)
	}
	if len(e.Data) == 0 && e.Kind == KindUnknown {
		return ""
	}

	account := html.EscapeString(e.Account)
	if account == "" {
		account = l.Unknown
	}

	switch e.Kind {
	case KindSearchStarted:
		return fmt.Sprintf(l.EventSearchStarted, account)
	case KindSearchCompleted:
		return fmt.Sprintf(l.EventSearchCompleted, vehicle(e.Data, l), account)
	case KindSearchStopped:
		return fmt.Sprintf(l.EventSearchStopped, account)
	case KindSearchError:
		reason := Sanitize(stringField(e.Data, "error", "message"))
		if reason == "" {
			reason = l.Unknown
		}
		return fmt.Sprintf(l.EventSearchError, account, reason)
	case KindRentalBooked:
		return fmt.Sprintf(l.EventRentalBooked, vehicle(e.Data, l), account)
	case KindRentalCancelled:
		return fmt.Sprintf(l.EventRentalCancelled, vehicle(e.Data, l), account)
	case KindRentalTripStarted:
		return fmt.Sprintf(l.EventRentalTripStarted, vehicle(e.Data, l), account)
	case KindRentalTripEnded:
		return fmt.Sprintf(l.EventRentalTripEnded, vehicle(e.Data, l), account)
	case KindRentalExtended:
		return fmt.Sprintf(l.EventRentalExtended, vehicle(e.Data, l), account)
	case KindRentalTransferred:
		return fmt.Sprintf(l.EventRentalTransferred, vehicle(e.Data, l), account, text(e.Data, l, "to_account"))
	case KindOptimizationSwap:
		return fmt.Sprintf(l.EventOptimizationSwap, vehicle(e.Data, l), text(e.Data, l, "score"))
	case KindUnknown:
		fallthrough
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(e.Data); err != nil {
			log.WithField("event", e.ID).Errorf("failed to encode event data: %v", err)
			return ""
		}
		return generic(e.Type, strings.TrimSpace(buf.String()), l)
	}
}

func generic(eventType, payload string, l *locales.Locale) string {
	if r := []rune(payload); len(r) > maxGenericPayloadLength {
		payload = string(r[:maxGenericPayloadLength]) + "…"
	}
	return fmt.Sprintf(l.EventGeneric, html.EscapeString(eventType), html.EscapeString(payload))
}

// text returns the escaped string value of the first present key, or the locale's unknown value
func text(m map[string]interface{}, l *locales.Locale, keys ...string) string {
	if s := stringField(m, keys...); s != "" {
		return html.EscapeString(s)
	}
	return l.Unknown
}

// vehicle formats the event's vehicle as `<model> #<number>`
func vehicle(data map[string]interface{}, l *locales.Locale) string {
	v, _ := data["vehicle"].(map[string]interface{})
	return fmt.Sprintf("%s #%s", text(v, l, "model"), text(v, l, "vehicle_nb", "number"))
}

// these are the HTML tags Telegram supported
var supportedTagNames = [...]string{"a", "b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre"}

// Sanitize reduces backend free text (possibly HTML) to the HTML subset Telegram supports
func Sanitize(s string) string {
	if s == "" {
		return ""
	}

	result, err := lolhtml.RewriteString(
		s,
		&lolhtml.Handlers{
			DocumentContentHandler: []lolhtml.DocumentContentHandler{
				{
					// text chunks are copied raw (entities undecoded), a stray `<` or `&` breaks Telegram's parser
					TextChunkHandler: func(t *lolhtml.TextChunk) lolhtml.RewriterDirective {
						content := t.Content()
						if content == "" {
							return lolhtml.Continue
						}
						if err := t.ReplaceAsText(html.UnescapeString(content)); err != nil {
							log.Error(err)
							return lolhtml.Stop
						}
						return lolhtml.Continue
					},
				},
			},
			ElementContentHandler: []lolhtml.ElementContentHandler{
				{
					Selector: "br",
					// Telegram doesn't support <br> but \n
					ElementHandler: func(e *lolhtml.Element) lolhtml.RewriterDirective {
						if err := e.ReplaceAsText("\n"); err != nil {
							log.Error(err)
							return lolhtml.Stop
						}
						return lolhtml.Continue
					},
				},
				{
					Selector: "p",
					ElementHandler: func(e *lolhtml.Element) lolhtml.RewriterDirective {
						if err := e.InsertAfterEndTagAsText("\n"); err != nil {
							log.Error(err)
							return lolhtml.Stop
						}
						return lolhtml.Continue
					},
				},
				{
					Selector: "li",
					// Telegram doesn't support <ul> & <li>, so add a `- ` at the beginning as an indicator
					ElementHandler: func(e *lolhtml.Element) lolhtml.RewriterDirective {
						if err := e.InsertBeforeStartTagAsText("- "); err != nil {
							log.Error(err)
							return lolhtml.Stop
						}
						if err := e.InsertAfterEndTagAsText("\n"); err != nil {
							log.Error(err)
							return lolhtml.Stop
						}
						return lolhtml.Continue
					},
				},
				{
					Selector: "*",
					// strip all the other tags since Telegram doesn't support them
					ElementHandler: func(e *lolhtml.Element) lolhtml.RewriterDirective {
						tagName := e.TagName()
						for _, supportedTagName := range supportedTagNames {
							if tagName == supportedTagName {
								return lolhtml.Continue
							}
						}
						e.RemoveAndKeepContent()
						return lolhtml.Continue
					},
				},
			},
		},
	)
	if err != nil {
		log.Errorf("failed to sanitize text: %v", err)
		return html.EscapeString(s)
	}
	return strings.TrimSpace(result)
}
