// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mapping compiles "{param}" topic templates into anchored regular
// expressions and matches incoming MQTT topics against a first-match,
// insertion-ordered rule table.
package mapping

import (
	"regexp"
	"strings"
)

// placeholderRe finds "{name}" placeholders in a topic pattern.
var placeholderRe = regexp.MustCompile(`\{([^{}/]+)\}`)

// TopicPattern is a compiled "{name}"-punctuated topic template. Placeholders
// match exactly one non-slash segment; no MQTT wildcards appear in the
// compiled expression itself.
type TopicPattern struct {
	Source     string
	ParamNames []string
	re         *regexp.Regexp
}

// CompilePattern escapes regex metacharacters in the literal portions of
// pattern, replaces each "{name}" with a capturing group matching one
// non-slash segment, and anchors the result.
func CompilePattern(pattern string) *TopicPattern {
	var sb strings.Builder
	sb.WriteString("^")

	names := make([]string, 0)
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(pattern, -1) {
		literal := pattern[last:loc[0]]
		sb.WriteString(regexp.QuoteMeta(literal))
		name := pattern[loc[2]:loc[3]]
		names = append(names, name)
		sb.WriteString("([^/]+)")
		last = loc[1]
	}
	sb.WriteString(regexp.QuoteMeta(pattern[last:]))
	sb.WriteString("$")

	return &TopicPattern{
		Source:     pattern,
		ParamNames: names,
		re:         regexp.MustCompile(sb.String()),
	}
}

// Match returns the captured param->segment mapping, or nil if topic does not
// match.
func (p *TopicPattern) Match(topic string) map[string]string {
	m := p.re.FindStringSubmatch(topic)
	if m == nil {
		return nil
	}
	captures := make(map[string]string, len(p.ParamNames))
	for i, name := range p.ParamNames {
		captures[name] = m[i+1]
	}
	return captures
}

// BrokerSubscriptionTopic derives the MQTT-side subscription filter by
// replacing each "{x}" placeholder with a single-level wildcard "+".
func BrokerSubscriptionTopic(pattern string) string {
	return placeholderRe.ReplaceAllString(pattern, "+")
}
