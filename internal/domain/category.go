package domain

// Category classifies a transaction's spending type.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryUtilities     Category = "Utilities"
	CategoryHealth        Category = "Health"
	CategoryEducation     Category = "Education"
	CategoryOther         Category = "Other"
)

// Categories lists every valid category in declaration order. The order
// matters: the categorization engine tests keyword tables in this order and
// the first match wins.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryShopping,
	CategoryBills,
	CategoryUtilities,
	CategoryHealth,
	CategoryEducation,
	CategoryOther,
}

// ValidCategory reports whether name is one of the known categories.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if string(c) == name {
			return true
		}
	}
	return false
}
