package tasks

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// fallbackLocales are tried after the user's own language, in order.
// The trailing empty locale asks the provider for tasks in any language.
var fallbackLocales = []string{"ru", "en", ""}

// NormalizeLocale reduces a Telegram language code such as "pt-br" or
// "en_US" to its base language ("pt", "en"). Unparseable codes yield "".
func NormalizeLocale(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// LocaleChain returns the de-duplicated list of locales the fetcher walks:
// the user's locale, then the fallbacks.
func LocaleChain(userLocale string) []string {
	chain := make([]string, 0, len(fallbackLocales)+1)
	if l := NormalizeLocale(userLocale); l != "" {
		chain = append(chain, l)
	}
	for _, l := range fallbackLocales {
		if !slices.Contains(chain, l) {
			chain = append(chain, l)
		}
	}
	return chain
}
