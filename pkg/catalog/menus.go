package catalog

var (
	breakfastOnly     = []MealPeriod{Breakfast}
	lunchOnly         = []MealPeriod{Lunch}
	dinnerOnly        = []MealPeriod{Dinner}
	lateOnly          = []MealPeriod{LateNight}
	lunchDinner       = []MealPeriod{Lunch, Dinner}
	breakfastToDinner = []MealPeriod{Breakfast, Lunch, Dinner}
	lunchToLate       = []MealPeriod{Lunch, Dinner, LateNight}
	allDay            = []MealPeriod{Breakfast, Lunch, Dinner, LateNight}
)

type staticItem struct {
	name    string
	periods []MealPeriod
}

// staticMenus are hand-curated menus for locations whose menu page has been
// scraped before. A present but empty entry means the location publishes no
// menu.
var staticMenus = map[string][]staticItem{
	"40": {
		{"Banana and Coconut Pancakes", breakfastOnly},
		{"Cage-Free Scrambled Eggs", breakfastOnly},
		{"Hard-boiled Cage Free Egg (1)", breakfastOnly},
		{"Mexican Chorizo Sausage", breakfastOnly},
		{"Organic Gluten-Free Oatmeal", breakfastOnly},
		{"Roasted Yukon Gold Potatoes", breakfastOnly},
		{"Vegan Happy Scramble", breakfastOnly},
		{"Steamed Rice", breakfastToDinner},
		{"Old Fashioned Cake Donuts", breakfastOnly},
		{"Organic Black Bean Soup", lunchOnly},
		{"Spicy North African Chicken Soup", lunchOnly},
		{"Cheese Pizza", lunchToLate},
		{"Sausage and Mushroom Pizza", lunchToLate},
		{"Allergen Free Halal Chicken Thigh", lunchDinner},
		{"Tofu with Kosher Salt", lunchDinner},
		{"Gluten-Free Snickerdoodle Cookie", lunchToLate},
		{"Pound Cake", lunchToLate},
		{"Available Upon Request: Gluten Free Rotini Pasta", lunchDinner},
		{"Condiments", allDay},
		{"Focaccia Breadsticks", lunchDinner},
		{"Housemade Creamy Alfredo Sauce", lunchDinner},
		{"Italian Roasted Squash and Carrots", lunchDinner},
		{"Italian Roasted Tofu", lunchDinner},
		{"Marinara Sauce", lunchDinner},
		{"Meatballs", lunchDinner},
		{"Pasta Bar", lunchDinner},
		{"Penne", lunchDinner},
		{"Deli Bar", lunchOnly},
		{"Salad Bar", lunchOnly},
		{"Porcini Crusted Roasted Chicken", dinnerOnly},
		{"Sauteed Rainbow Chard with Garlic Oil", dinnerOnly},
		{"Steamed Brown Rice", dinnerOnly},
		{"Apple Pie", dinnerOnly},
		{"Basmati Rice Pullao", dinnerOnly},
		{"Chana Masala", dinnerOnly},
		{"Chicken Tikka Masala", dinnerOnly},
		{"Dal Saag", dinnerOnly},
		{"Masala Baked Tofu", dinnerOnly},
		{"North Indian Bar", dinnerOnly},
		{"Original Naan", dinnerOnly},
	},
	"05": {
		{"Cage-Free Scrambled Eggs", breakfastOnly},
		{"Cajun Roasted Red Potatoes", breakfastOnly},
		{"Hard-boiled Cage Free Egg (1)", breakfastOnly},
		{"Organic Gluten-Free Oatmeal", breakfastOnly},
		{"Sausage Links", breakfastOnly},
		{"Sourdough French Toast", breakfastOnly},
		{"Thai Tofu Scramble", breakfastOnly},
		{"Steamed Rice", breakfastToDinner},
		{"Old Fashioned Cake Donuts", breakfastOnly},
		{"Carrot Raisin Muffin", breakfastOnly},
		{"Orange Cranberry Scone", breakfastOnly},
		{"Pumpkin Muffin", breakfastOnly},
		{"Green Pozole with Chicken", lunchOnly},
		{"Cheese Pizza", lunchToLate},
		{"Focaccia Pizza with Basil Pesto", lunchOnly},
		{"Allergen Free Halal Chicken Thigh", lunchDinner},
		{"Tofu with Kosher Salt", lunchDinner},
		{"Gluten-Free Snickerdoodle Cookie", lunchToLate},
		{"Pound Cake", lunchToLate},
		{"Available Upon Request: Gluten Free Rotini Pasta", lunchDinner},
		{"Bolognese Sauce", lunchDinner},
		{"Condiments", allDay},
		{"Focaccia Breadsticks", lunchDinner},
		{"Marinara Sauce", lunchDinner},
		{"Pasta Bar", lunchDinner},
		{"Penne", lunchDinner},
		{"Steamed Broccoli", lunchOnly},
		{"Deli Bar", lunchOnly},
		{"Salad Bar", lunchOnly},
		{"Cajun Lightning Chicken", dinnerOnly},
		{"Quinoa with Lemon and Thyme", dinnerOnly},
		{"Roasted Broccoli and Carrots", dinnerOnly},
		{"Apple Pie", dinnerOnly},
		{"Battered Popcorn Chicken", dinnerOnly},
		{"Creamy Mashed Yukon Golds", dinnerOnly},
		{"Mashed Potato Bowl Bar", dinnerOnly},
		{"Roasted Kale and Butternut Squash", dinnerOnly},
		{"Vegan Garlic Mashed Potatoes", dinnerOnly},
		{"Vegan Mushroom Gravy", dinnerOnly},
		{"Pepperoni Pizza", lateOnly},
		{"Chocolate Chip Cookie", lateOnly},
		{"Ice Cream Bar", lateOnly},
	},
	"30": {
		{"Old Fashioned Cake Donuts", breakfastOnly},
		{"Cage-Free Scrambled Eggs", breakfastOnly},
		{"Cajun Roasted Red Potatoes", breakfastOnly},
		{"French Toast Sticks", breakfastOnly},
		{"Sausage Links", breakfastOnly},
		{"Thai Tofu Scramble", breakfastOnly},
		{"Hard-boiled Cage Free Egg (1)", breakfastOnly},
		{"Steamed Rice", breakfastToDinner},
		{"Organic Gluten-Free Oatmeal", breakfastOnly},
		{"Allergen Free Halal Chicken Thigh", lunchDinner},
		{"Tofu with Kosher Salt", lunchDinner},
		{"Gluten-Free Snickerdoodle Cookie", lunchDinner},
		{"Pound Cake", lunchDinner},
		{"Available Upon Request: Gluten Free Rotini Pasta", lunchDinner},
		{"Bolognese Sauce", lunchDinner},
		{"Condiments", breakfastToDinner},
		{"Marinara Sauce", lunchDinner},
		{"Pasta Bar", lunchDinner},
		{"Penne", lunchDinner},
		{"Deli Bar", lunchOnly},
		{"Salad Bar", lunchOnly},
	},
	"20": {},
	"25": {},
	"22": {},
	"50": {},
	"47": {},
}

// StaticMenu returns the curated menu for locationID. ok is false when the
// catalog defines no menu for it; a defined menu may be empty.
func StaticMenu(locationID string) (items []MenuItem, ok bool) {
	src, ok := staticMenus[locationID]
	if !ok {
		return nil, false
	}
	return buildMenu(locationID, src), true
}

// FallbackMenu is the last-resort menu for locationID: the curated menu when
// one is defined, otherwise the generic template.
func FallbackMenu(locationID string) []MenuItem {
	if items, ok := StaticMenu(locationID); ok {
		return items
	}
	return GenericMenu(locationID)
}

func buildMenu(locationID string, src []staticItem) []MenuItem {
	out := make([]MenuItem, 0, len(src))
	for _, s := range src {
		out = append(out, MenuItem{
			ID:          ItemID(locationID, s.name),
			LocationID:  locationID,
			Name:        s.name,
			IsAvailable: true,
			MealPeriods: append([]MealPeriod(nil), s.periods...),
		})
	}
	return out
}
