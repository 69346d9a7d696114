package product

// Closed category taxonomy. Subcategories are validated against their
// parent category, not globally.
var taxonomy = map[string][]string{
	"breakfast": {"pancakes", "eggs", "porridge", "full_breakfast"},
	"mains":     {"grills", "stews", "curries", "rice", "pasta", "seafood"},
	"snacks":    {"samosas", "bites", "pastries", "fries"},
	"salads":    {"green", "grain", "fruit"},
	"soups":     {"vegetable", "meat", "seafood"},
	"desserts":  {"cakes", "pastries", "ice_cream", "puddings"},
	"drinks":    {"juices", "smoothies", "sodas", "hot_drinks"},
}

var dietaryTags = map[string]bool{
	"vegetarian":  true,
	"vegan":       true,
	"halal":       true,
	"gluten_free": true,
	"dairy_free":  true,
	"nut_free":    true,
	"spicy":       true,
}

func ValidCategory(cat string) bool {
	_, ok := taxonomy[cat]
	return ok
}

func ValidSubcategory(cat, sub string) bool {
	if sub == "" {
		return true
	}
	for _, s := range taxonomy[cat] {
		if s == sub {
			return true
		}
	}
	return false
}

func ValidDietaryTag(tag string) bool {
	return dietaryTags[tag]
}
