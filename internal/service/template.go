package service

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`(?i)\{\{\s*(name|product|price)\s*\}\}`)

// TemplateVars are the values substituted into a campaign message.
type TemplateVars struct {
	Name    string
	Product string
	Price   string
}

// RenderTemplate replaces {{name}}, {{product}} and {{price}} in any letter
// case. Unknown placeholders are left untouched.
func RenderTemplate(tpl string, vars TemplateVars) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		field := placeholderPattern.FindStringSubmatch(match)[1]

		switch strings.ToLower(field) {
		case "name":
			return vars.Name
		case "product":
			return vars.Product
		default:
			return vars.Price
		}
	})
}
