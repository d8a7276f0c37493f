// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schemamap

import (
	"regexp"
)

var templateKeyRe = regexp.MustCompile(`\{([^{}]+)\}`)

// RenderTemplate substitutes every "{key}" in tmpl with captures[key].
// Missing keys render as empty string. No escaping, no nested templates.
func RenderTemplate(tmpl string, captures map[string]string) string {
	return templateKeyRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		return captures[key]
	})
}
