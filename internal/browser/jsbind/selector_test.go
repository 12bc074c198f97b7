package jsbind

import (
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateCSSToXPath(t *testing.T) {
	tests := []struct {
		css, expected string
	}{
		{"div", "//div"},
		{"DIV", "//div"},
		{"*", "//*"},
		{"#main", "//*[@id='main']"},
		{"a.btn", "//a[contains(concat(' ', normalize-space(@class), ' '), ' btn ')]"},
		{"ul > li", "//ul/li"},
		{"h1 + p", "//h1/following-sibling::*[1]/self::p"},
		{"h1 ~ p", "//h1/following-sibling::p"},
		{"form input[type=\"text\"]", "//form//input[@type='text']"},
		{"[data-id]", "//*[@data-id]"},
		{"a[href^='http']", "//a[starts-with(@href, 'http')]"},
		{"a, b", "//a | //b"},
		{"li:first-child", "//li[not(preceding-sibling::*)]"},
		{"//already/xpath", "//already/xpath"},
	}
	for _, tt := range tests {
		t.Run(tt.css, func(t *testing.T) {
			got, err := translateCSSToXPath(tt.css, false)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("scoped", func(t *testing.T) {
		got, err := translateCSSToXPath("p, span", true)
		require.NoError(t, err)
		assert.Equal(t, ".//p | .//span", got)
	})

	for _, bad := range []string{"", "a:hover", "a[", "#", "a,", "p::before"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := translateCSSToXPath(bad, false)
			var invalid *InvalidSelectorError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestTranslateCSSToXPath_Evaluates(t *testing.T) {
	doc := parseDoc(t, `<div id="root">
		<p id="p1" class="note big" lang="en-GB" data-x="pre-mid-suf">a</p>
		<p id="p2">b</p>
		<span id="s1">c</span>
		<em id="it's">d</em>
	</div>`)

	tests := []struct {
		css      string
		expected []string
	}{
		{".note", []string{"p1"}},
		{".note.big", []string{"p1"}},
		{".no", nil},
		{"p + p", []string{"p2"}},
		{"p ~ span", []string{"s1"}},
		{"p ~ *", []string{"p2", "s1", "it's"}},
		{"div p", []string{"p1", "p2"}},
		{"[lang|=en]", []string{"p1"}},
		{"[data-x$=suf]", []string{"p1"}},
		{"[data-x*=mid]", []string{"p1"}},
		{"[data-x$=pre]", nil},
		{"[class~=big]", []string{"p1"}},
		{"div > p:last-child", nil},
		{"div > :last-child", []string{"it's"}},
		{`[id="it's"]`, []string{"it's"}},
	}
	for _, tt := range tests {
		t.Run(tt.css, func(t *testing.T) {
			xpath, err := translateCSSToXPath(tt.css, false)
			require.NoError(t, err)
			nodes, err := queryAll(doc, xpath)
			require.NoError(t, err, xpath)
			var ids []string
			for _, n := range nodes {
				ids = append(ids, htmlquery.SelectAttr(n, "id"))
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}
