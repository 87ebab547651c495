// Package i18n holds the site's locales, the embedded message catalogs and
// the locale negotiation used by the router.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"path"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	English = "en"
	Arabic  = "ar"

	// Default is used when neither the URL, the cookie nor the browser name a
	// supported locale.
	Default = English

	// CookieName records the locale the visitor last chose.
	CookieName = "NEXT_LOCALE"
)

// Supported lists the site locales in matcher order.
var Supported = []string{English, Arabic}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

//go:embed locales/*.yaml
var catalogFS embed.FS

// IsSupported reports whether locale is one of the site locales.
func IsSupported(locale string) bool {
	for _, l := range Supported {
		if l == locale {
			return true
		}
	}
	return false
}

// IsRTL reports whether locale is written right to left.
func IsRTL(locale string) bool {
	return locale == Arabic
}

// Dir returns the HTML dir attribute for locale.
func Dir(locale string) string {
	if IsRTL(locale) {
		return "rtl"
	}
	return "ltr"
}

// Catalog maps locale -> dotted key -> message.
type Catalog struct {
	messages map[string]map[string]string
}

// LoadCatalog parses the embedded catalogs for every supported locale.
func LoadCatalog() (*Catalog, error) {
	c := &Catalog{messages: make(map[string]map[string]string, len(Supported))}
	for _, locale := range Supported {
		data, err := catalogFS.ReadFile(path.Join("locales", locale+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("reading %s catalog: %w", locale, err)
		}
		msgs, err := parseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s catalog: %w", locale, err)
		}
		c.messages[locale] = msgs
	}
	return c, nil
}

func parseCatalog(data []byte) (map[string]string, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Localizer returns a Localizer bound to locale. Unsupported locales fall
// back to Default.
func (c *Catalog) Localizer(locale string) Localizer {
	if !IsSupported(locale) {
		locale = Default
	}
	return Localizer{locale: locale, catalog: c}
}

// Localizer translates message keys for one locale.
type Localizer struct {
	locale  string
	catalog *Catalog
}

// Locale returns the bound locale.
func (l Localizer) Locale() string { return l.locale }

// Dir returns the text direction of the bound locale.
func (l Localizer) Dir() string { return Dir(l.locale) }

// T translates key. Missing keys fall back to the default locale and then to
// the key itself.
func (l Localizer) T(key string) string {
	if l.catalog == nil {
		return key
	}
	if msg, ok := l.catalog.messages[l.locale][key]; ok {
		return msg
	}
	if msg, ok := l.catalog.messages[Default][key]; ok {
		return msg
	}
	return key
}

// Negotiate picks a locale for a request that does not carry one in its path:
// the locale cookie wins, then Accept-Language, then Default.
func Negotiate(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && IsSupported(c.Value) {
		return c.Value
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		tags, _, err := language.ParseAcceptLanguage(h)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				return Supported[idx]
			}
		}
	}
	return Default
}

// SplitPath separates a leading locale segment from p. ok is false when p
// does not start with a supported locale.
func SplitPath(p string) (locale, rest string, ok bool) {
	trimmed := strings.TrimPrefix(p, "/")
	seg, tail, _ := strings.Cut(trimmed, "/")
	if !IsSupported(seg) {
		return "", p, false
	}
	return seg, "/" + tail, true
}

// Path prefixes p with locale.
func Path(locale, p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p == "/" {
		return "/" + locale + "/"
	}
	return "/" + locale + p
}

// SetCookie remembers the chosen locale for a year.
func SetCookie(w http.ResponseWriter, locale string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    locale,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey struct{}

// ContextWithLocale returns a context carrying locale.
func ContextWithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, contextKey{}, locale)
}

// FromContext returns the request locale, or Default when none is set.
func FromContext(ctx context.Context) string {
	if l, ok := ctx.Value(contextKey{}).(string); ok {
		return l
	}
	return Default
}
