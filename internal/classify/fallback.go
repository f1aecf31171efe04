package classify

import "strings"

// Fallback categorizes an item name locally: exact match first, then
// substring match. Returns DefaultCategory when nothing matches.
func Fallback(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return DefaultCategory
	}

	if cat, ok := exactMatch[n]; ok {
		return cat
	}

	for _, entry := range substringMatches {
		if strings.Contains(n, entry.keyword) {
			return entry.category
		}
	}

	return DefaultCategory
}

var exactMatch = map[string]string{
	// Produce
	"apples":   "Produce",
	"bananas":  "Produce",
	"tomatoes": "Produce",
	"potatoes": "Produce",
	"onions":   "Produce",
	"garlic":   "Produce",
	"lettuce":  "Produce",
	"spinach":  "Produce",
	"carrots":  "Produce",
	"broccoli": "Produce",
	"grapes":   "Produce",
	"lemons":   "Produce",
	"avocado":  "Produce",

	// Dairy
	"milk":    "Dairy",
	"butter":  "Dairy",
	"eggs":    "Dairy",
	"yogurt":  "Dairy",
	"cheese":  "Dairy",
	"cream":   "Dairy",
	"kefir":   "Dairy",
	"cottage": "Dairy",

	// Bakery
	"bread":      "Bakery",
	"bagels":     "Bakery",
	"tortillas":  "Bakery",
	"croissants": "Bakery",
	"buns":       "Bakery",

	// Meat & Seafood
	"chicken": "Meat & Seafood",
	"beef":    "Meat & Seafood",
	"pork":    "Meat & Seafood",
	"salmon":  "Meat & Seafood",
	"shrimp":  "Meat & Seafood",
	"bacon":   "Meat & Seafood",
	"turkey":  "Meat & Seafood",

	// Pantry
	"rice":    "Pantry",
	"pasta":   "Pantry",
	"flour":   "Pantry",
	"sugar":   "Pantry",
	"salt":    "Pantry",
	"oil":     "Pantry",
	"cereal":  "Pantry",
	"oats":    "Pantry",
	"honey":   "Pantry",
	"ketchup": "Pantry",

	// Beverages
	"coffee": "Beverages",
	"tea":    "Beverages",
	"juice":  "Beverages",
	"soda":   "Beverages",
	"water":  "Beverages",
	"beer":   "Beverages",
	"wine":   "Beverages",

	// Snacks
	"chips":    "Snacks",
	"crackers": "Snacks",
	"cookies":  "Snacks",
	"popcorn":  "Snacks",
	"nuts":     "Snacks",

	// Household
	"detergent": "Household",
	"sponges":   "Household",
	"bleach":    "Household",
	"foil":      "Household",

	// Personal Care
	"shampoo":    "Personal Care",
	"soap":       "Personal Care",
	"toothpaste": "Personal Care",
	"deodorant":  "Personal Care",
}

// Ordered longest/most-specific first so "ice cream" wins over "cream".
var substringMatches = []struct {
	keyword  string
	category string
}{
	{"ice cream", "Frozen"},
	{"frozen", "Frozen"},
	{"toilet paper", "Household"},
	{"paper towel", "Household"},
	{"trash bag", "Household"},
	{"dish soap", "Household"},
	{"laundry", "Household"},
	{"toothbrush", "Personal Care"},
	{"milk", "Dairy"},
	{"cheese", "Dairy"},
	{"yogurt", "Dairy"},
	{"bread", "Bakery"},
	{"cake", "Bakery"},
	{"muffin", "Bakery"},
	{"chicken", "Meat & Seafood"},
	{"beef", "Meat & Seafood"},
	{"fish", "Meat & Seafood"},
	{"sausage", "Meat & Seafood"},
	{"sauce", "Pantry"},
	{"bean", "Pantry"},
	{"soup", "Pantry"},
	{"spice", "Pantry"},
	{"juice", "Beverages"},
	{"drink", "Beverages"},
	{"chocolate", "Snacks"},
	{"candy", "Snacks"},
	{"berries", "Produce"},
	{"pepper", "Produce"},
	{"apple", "Produce"},
	{"banana", "Produce"},
}
