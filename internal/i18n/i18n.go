package i18n

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// catalogs maps a supported locale to its messages. English is complete and
// backs every other catalog.
var catalogs = map[string]map[string]string{
	"en":    EnMessages,
	"zh-CN": ZhCNMessages,
}

// localeEnv is consulted in order when no locale is configured. The
// taskchat variable comes first, then the POSIX precedence.
var localeEnv = []string{"TASKCHAT_LANG", "LC_ALL", "LC_MESSAGES", "LANG"}

// I18n 消息目录
// I18n is an immutable message catalog for one locale
type I18n struct {
	locale   string
	messages map[string]string
}

// New 按配置或环境选择目录
// New picks the catalog for the configured locale (ui.locale), falling back
// to the environment and then to English
func New(configured string) *I18n {
	locale := Resolve(configured)
	messages := make(map[string]string, len(EnMessages))
	for k, v := range EnMessages {
		messages[k] = v
	}
	if locale != "en" {
		for k, v := range catalogs[locale] {
			messages[k] = v
		}
	}
	return &I18n{locale: locale, messages: messages}
}

// Resolve returns the supported locale for configured, or for the
// environment when configured is empty. Unsupported locales resolve to en.
func Resolve(configured string) string {
	raw := strings.TrimSpace(configured)
	if raw == "" {
		raw = DetectLocale()
	}
	if _, ok := catalogs[normalizeLocale(raw)]; ok {
		return normalizeLocale(raw)
	}
	return "en"
}

// Supported lists the locales that have a catalog.
func Supported() []string {
	out := make([]string, 0, len(catalogs))
	for locale := range catalogs {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// T 翻译 / Translate. A missing key returns the key itself.
func (i *I18n) T(key string, args ...any) string {
	tmpl, ok := i.messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Locale returns the resolved locale.
func (i *I18n) Locale() string {
	return i.locale
}

// DetectLocale 从环境变量检测 locale
// DetectLocale reads the locale from the environment. The C and POSIX
// locales carry no language and are skipped.
func DetectLocale() string {
	for _, env := range localeEnv {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" || v == "C" || v == "POSIX" || strings.HasPrefix(v, "C.") {
			continue
		}
		return normalizeLocale(v)
	}
	return "en"
}

func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "en"
	}
	// 去掉 .UTF-8 与 @modifier / Drop the codeset and modifier
	if idx := strings.IndexAny(s, ".@"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ReplaceAll(s, "_", "-")
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "zh"):
		return "zh-CN"
	case strings.HasPrefix(lower, "en"):
		return "en"
	}
	return s
}
