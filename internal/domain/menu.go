package domain

// Category — раздел меню. Значения совпадают с форматом хранения.
type Category string

const (
	CategoryDrinks   Category = "drinks"
	CategoryPastries Category = "pastries"
)

// Valid проверяет, что категория известна.
func (c Category) Valid() bool {
	return c == CategoryDrinks || c == CategoryPastries
}

// MenuItem — неизменяемая позиция каталога.
type MenuItem struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// IsDrink сообщает, поддерживает ли позиция выбор сладости.
func (m MenuItem) IsDrink() bool {
	return m.Category == CategoryDrinks
}

var menu = []MenuItem{
	{ID: 1, Name: "Blueberry Matcha", Category: CategoryDrinks, Ingredients: []string{"Blueberry syrup", "Oat milk", "Blueberry cold foam"}},
	{ID: 2, Name: "Lemon Poppyseed Matcha", Category: CategoryDrinks, Ingredients: []string{"Lemon poppyseed syrup", "Oat milk", "Lemon poppyseed cold foam"}},
	{ID: 3, Name: "Mango Sago Matcha", Category: CategoryDrinks, Ingredients: []string{"Mango purée (coconut milk, condensed milk)", "Sago", "Oat milk", "Honey"}},
	{ID: 4, Name: "Croissant", Category: CategoryPastries},
	{ID: 5, Name: "Cherry Cheese Danish Bread", Category: CategoryPastries},
	{ID: 6, Name: "Cardamom Bun", Category: CategoryPastries},
	{ID: 7, Name: "Focaccia", Category: CategoryPastries},
}

// Menu возвращает копию статического каталога в порядке отображения.
func Menu() []MenuItem {
	out := make([]MenuItem, 0, len(menu))
	for _, item := range menu {
		out = append(out, item.clone())
	}
	return out
}

// MenuItemByID ищет позицию каталога по идентификатору.
func MenuItemByID(id int) (MenuItem, bool) {
	for _, item := range menu {
		if item.ID == id {
			return item.clone(), true
		}
	}
	return MenuItem{}, false
}

func (m MenuItem) clone() MenuItem {
	if m.Ingredients != nil {
		m.Ingredients = append([]string(nil), m.Ingredients...)
	}
	return m
}
