// Package translate formats user visible messages for the user's locale.
package translate

import (
	"github.com/jeandeaual/go-locale"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FALLBACK_LOCALE is used when the user's locales cannot be determined.
const FALLBACK_LOCALE = "en-US"

var printer = message.NewPrinter(language.MustParse(FALLBACK_LOCALE))

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		logrus.WithField("component", "translate").WithError(err).Warn("locale")
	}

	if len(locales) == 0 {
		return
	}

	printer = message.NewPrinter(message.MatchLanguage(append(locales, FALLBACK_LOCALE)...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
