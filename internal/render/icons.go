package render

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultIcon marks a field no keyword matched.
const DefaultIcon = "📌"

type iconRule struct {
	icon     string
	keywords []string
}

// First match wins, so more specific rules come first.
var iconRules = []iconRule{
	{"👤", []string{"имя", "название", "name"}},
	{"📧", []string{"email", "e-mail", "почта"}},
	{"📱", []string{"телефон", "phone"}},
	{"💬", []string{"telegram"}},
	{"🌍", []string{"город", "страна", "city", "country", "location"}},
	{"⭐", []string{"уровень", "level"}},
	{"🤝", []string{"сотрудничество", "тип", "cooperation", "type"}},
	{"💼", []string{"опыт", "навыки", "experience", "skills"}},
	{"📝", []string{"описание", "о себе", "description", "about"}},
	{"🔑", []string{"ключевые", "keywords"}},
}

var folder = cases.Fold()

// foldLabel is the caseless form used for every label comparison.
func foldLabel(label string) string {
	return strings.TrimSpace(folder.String(label))
}

// Icon picks an emoji for a field by keywords in its label.
func Icon(label string) string {
	l := foldLabel(label)
	for _, r := range iconRules {
		for _, kw := range r.keywords {
			if strings.Contains(l, kw) {
				return r.icon
			}
		}
	}
	return DefaultIcon
}
