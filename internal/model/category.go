package model

import (
	"fmt"
	"strings"
)

// Category is a news/quiz category. The set is closed so a typo can never
// create a new cooldown key.
type Category string

const (
	CategoryTechnology    Category = "Technology"
	CategorySports        Category = "Sports"
	CategoryPolitics      Category = "Politics"
	CategoryBusiness      Category = "Business"
	CategoryScience       Category = "Science"
	CategoryWorld         Category = "World"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
)

var allCategories = []Category{
	CategoryTechnology,
	CategorySports,
	CategoryPolitics,
	CategoryBusiness,
	CategoryScience,
	CategoryWorld,
	CategoryEntertainment,
	CategoryHealth,
}

var categoriesByName = func() map[string]Category {
	m := make(map[string]Category, len(allCategories))
	for _, c := range allCategories {
		m[strings.ToLower(string(c))] = c
	}
	return m
}()

// ParseCategory は大文字小文字を無視してカテゴリ名を正規化します
func ParseCategory(name string) (Category, error) {
	c, ok := categoriesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, name)
	}
	return c, nil
}

func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}
