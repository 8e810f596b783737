// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// CategoryColor names one of the colors a visualizer maps to an actual
// RGB value; the core never renders anything itself.
type CategoryColor string

const (
	CategoryColorGrey      CategoryColor = "grey"
	CategoryColorBlue      CategoryColor = "blue"
	CategoryColorGreen     CategoryColor = "green"
	CategoryColorOrange    CategoryColor = "orange"
	CategoryColorPurple    CategoryColor = "purple"
	CategoryColorYellow    CategoryColor = "yellow"
	CategoryColorLightblue CategoryColor = "lightblue"
	CategoryColorRed       CategoryColor = "red"
	CategoryColorMagenta   CategoryColor = "magenta"
)

// Category is a top-level sample category (e.g. "JavaScript", "Layout",
// "Kernel"), with an ordered list of subcategories.
type Category struct {
	Name          string
	Color         CategoryColor
	Subcategories []string
}

// AddCategory appends a new Category and returns its handle. Category 0
// is always "Other" (added by New).
func (p *Profile) AddCategory(name string, color CategoryColor) CategoryHandle {
	h := CategoryHandle(len(p.categories))
	p.categories = append(p.categories, Category{Name: name, Color: color})
	return h
}

// AddSubcategory appends a subcategory to an existing category and
// returns the pair handle referencing it.
func (p *Profile) AddSubcategory(cat CategoryHandle, name string) CategoryPair {
	c := &p.categories[cat]
	idx := len(c.Subcategories)
	c.Subcategories = append(c.Subcategories, name)
	return CategoryPair{Category: cat, Subcategory: idx}
}

// OtherCategory is the always-present category 0.
func (p *Profile) OtherCategory() CategoryPair {
	return CategoryPair{Category: 0, Subcategory: NoSubcategory}
}
