/*
Copyright 2024 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package driver

import (
	"strconv"
	"strings"
)

// Translator rewrites a matched parameter name into the placeholder the
// driver understands. Translators may keep state, so take a fresh one
// per command.
type Translator interface {
	Translate(matched string) string
}

// TranslateFunc is a function type of Translator.
type TranslateFunc func(matched string) string

// Translate implements Translator.
func (f TranslateFunc) Translate(matched string) string {
	return f(matched)
}

// QuestionTranslator replaces every parameter with "?".
func QuestionTranslator() Translator {
	return TranslateFunc(func(string) string { return "?" })
}

// OrdinalTranslator numbers placeholders in order of appearance, starting
// at 1, each number preceded by the given symbol.
func OrdinalTranslator(symbol string) Translator {
	var index int
	return TranslateFunc(func(string) string {
		index++
		return symbol + strconv.Itoa(index)
	})
}

// NamedTranslator keeps the parameter name as it was written, normalizing
// the prefix to the given one.
func NamedTranslator(prefix string, from ...string) Translator {
	return TranslateFunc(func(matched string) string {
		for _, p := range from {
			if rest, ok := strings.CutPrefix(matched, p); ok {
				return prefix + rest
			}
		}
		return matched
	})
}
