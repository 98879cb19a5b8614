package core

// Category is a suggested transaction category. Categories are not enforced:
// any non-empty string is accepted on a transaction.
type Category struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Kind  Kind   `json:"kind"`
}

// DefaultCategories is the suggested set seeded into new stores.
var DefaultCategories = []Category{
	{Name: "Salaire", Icon: "💰", Color: "#28a745", Kind: KindIncome},
	{Name: "Bonus", Icon: "🎁", Color: "#ffc107", Kind: KindIncome},
	{Name: "Freelance", Icon: "💼", Color: "#17a2b8", Kind: KindIncome},
	{Name: "Investissement", Icon: "📈", Color: "#6f42c1", Kind: KindIncome},

	{Name: "Nourriture", Icon: "🍽️", Color: "#dc3545", Kind: KindExpense},
	{Name: "Transport", Icon: "🚗", Color: "#fd7e14", Kind: KindExpense},
	{Name: "Logement", Icon: "🏠", Color: "#20c997", Kind: KindExpense},
	{Name: "Communication", Icon: "📱", Color: "#e83e8c", Kind: KindExpense},
	{Name: "Santé", Icon: "🏥", Color: "#6610f2", Kind: KindExpense},
	{Name: "Loisirs", Icon: "🎮", Color: "#343a40", Kind: KindExpense},
	{Name: "Vêtements", Icon: "👕", Color: "#6c757d", Kind: KindExpense},
	{Name: "Éducation", Icon: "📚", Color: "#28a745", Kind: KindExpense},
	{Name: "Divers", Icon: "📦", Color: "#6c757d", Kind: KindExpense},
}

// CategoriesOf returns the default categories of the given kind, or all of
// them when kind is empty.
func CategoriesOf(kind Kind) []Category {
	out := make([]Category, 0, len(DefaultCategories))
	for _, c := range DefaultCategories {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
