package handler

import (
	"fmt"
	"html/template"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// String functions
		"title": func(v any) string {
			return cases.Title(language.English).String(fmt.Sprint(v))
		},

		// cn merges Tailwind class lists; later classes win over conflicting
		// earlier ones (e.g. "p-2" then "p-4" yields "p-4").
		"cn": func(classes ...string) string {
			return twmerge.Merge(classes...)
		},

		// Conditional/Logic functions
		"ternary": func(condition bool, trueVal, falseVal any) any {
			if condition {
				return trueVal
			}
			return falseVal
		},

		// Collection functions
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil
				}
				dict[key] = values[i+1]
			}
			return dict
		},

		// Form helpers
		"inputClass": func(errMsg string) string {
			base := "mt-1 block w-full rounded-md border border-gray-300 px-3 py-2 text-sm shadow-sm focus:border-indigo-500 focus:outline-none"
			if errMsg == "" {
				return base
			}
			return twmerge.Merge(base, "border-red-500 focus:border-red-600")
		},
	}
}
