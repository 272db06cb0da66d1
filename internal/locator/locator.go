// Package locator builds the structural queries used to find elements on a
// task board. Queries are XPath 1.0 expressions so that every browser engine
// can evaluate them natively.
package locator

import (
	"strconv"
	"strings"
)

// Selector is an XPath 1.0 expression.
type Selector string

func (s Selector) String() string { return string(s) }

// Layout describes the markup conventions of the board under test.
type Layout struct {
	// Landmark is text that only appears once a user is signed in.
	Landmark string
	// ColumnClass is the class token carried by every column container.
	ColumnClass string
}

// DefaultLayout returns the conventions of the reference board.
func DefaultLayout() Layout {
	return Layout{
		Landmark:    "Projects",
		ColumnClass: "w-80",
	}
}

// Username is the sign-in username field.
func Username() Selector { return `//input[@id='username']` }

// Password is the sign-in password field.
func Password() Selector { return `//input[@id='password']` }

// Submit is the sign-in submit control.
func Submit() Selector { return `//button[@type='submit']` }

// LandmarkElement matches any element whose own text contains the landmark.
func (l Layout) LandmarkElement() Selector {
	return Selector(`//body//*[not(self::script or self::style or self::title)][text()[contains(normalize-space(.), ` +
		Literal(Normalize(l.LandmarkText())) + `)]]`)
}

// LandmarkText returns the configured landmark or the default one.
func (l Layout) LandmarkText() string {
	if l.Landmark == "" {
		return DefaultLayout().Landmark
	}
	return l.Landmark
}

// SidebarEntry matches a button inside nav that holds an h2 titled app.
func SidebarEntry(app string) Selector {
	return Selector(`//nav//button[.//h2[normalize-space(.)=` + Literal(Normalize(app)) + `]]`)
}

// Header matches the top-level h1 showing app.
func Header(app string) Selector {
	return Selector(`//header//h1[contains(normalize-space(.), ` + Literal(Normalize(app)) + `)]`)
}

// Column matches column containers whose h2 contains name. The match is a
// case-sensitive substring so "To Do (2)" matches "To Do".
func (l Layout) Column(name string) Selector {
	class := l.ColumnClass
	if class == "" {
		class = DefaultLayout().ColumnClass
	}
	return Selector(`//main//div[contains(concat(' ', normalize-space(@class), ' '), ` + Literal(" "+class+" ") + `)]` +
		`[.//h2[contains(normalize-space(.), ` + Literal(Normalize(name)) + `)]]`)
}

// Card matches the first div inside column whose direct child h3 equals title.
func Card(column Selector, title string) Selector {
	return Selector(`(` + string(column) + `//div[h3[normalize-space(.)=` + Literal(Normalize(title)) + `]])[1]`)
}

// Nth matches only the i-th (1-based) element matched by sel, in document
// order.
func Nth(sel Selector, i int) Selector {
	return Selector(`(` + string(sel) + `)[` + strconv.Itoa(i) + `]`)
}

// CardHeading matches the h3 of card.
func CardHeading(card Selector) Selector {
	return Selector(string(card) + `/h3`)
}

// Tag matches the innermost element inside card whose text equals tag.
func Tag(card Selector, tag string) Selector {
	lit := Literal(Normalize(tag))
	return Selector(string(card) + `//*[normalize-space(.)=` + lit + `][not(*[normalize-space(.)=` + lit + `])]`)
}

// Normalize applies the XPath normalize-space rules to s: leading and
// trailing whitespace is dropped and inner runs collapse to one space.
func Normalize(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}), " ")
}

// Literal quotes s as an XPath string literal. XPath 1.0 has no escape
// sequences, so values holding both quote kinds are built with concat().
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
