package recipe

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"foodgram/entities"
)

type shoppingListItem struct {
	Name            string
	MeasurementUnit string
	Total           int
}

// aggregateIngredients groups cart ingredient rows by (name, measurement unit)
// and sums their amounts. Grouping is by name+unit rather than ingredient id:
// two catalogue rows that share both merge into one line of the list.
func aggregateIngredients(rows []*entities.RecipeIngredient) []shoppingListItem {
	type key struct {
		name string
		unit string
	}

	totals := make(map[key]int)
	for _, row := range rows {
		if row.Ingredient == nil {
			continue
		}
		k := key{name: row.Ingredient.Name, unit: row.Ingredient.MeasurementUnit}
		totals[k] += row.Amount
	}

	items := make([]shoppingListItem, 0, len(totals))
	for k, total := range totals {
		items = append(items, shoppingListItem{
			Name:            k.name,
			MeasurementUnit: k.unit,
			Total:           total,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].MeasurementUnit < items[j].MeasurementUnit
	})

	return items
}

// renderShoppingList builds the plain-text shopping list document.
func renderShoppingList(user *entities.User, items []shoppingListItem, recipes []*entities.Recipe, now time.Time) string {
	var b strings.Builder

	b.WriteString("Foodgram - Shopping List\n")
	b.WriteString(fmt.Sprintf("Date: %s UTC\n", now.UTC().Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("User: %s\n", user.FullName()))
	b.WriteString("\n")

	for i, item := range items {
		b.WriteString(fmt.Sprintf(
			"%d. %s - %d %s\n",
			i+1, capitalize(item.Name), item.Total, item.MeasurementUnit,
		))
	}

	b.WriteString("\n")

	for _, r := range recipes {
		author := ""
		if r.Author != nil {
			author = r.Author.FullName()
		}
		b.WriteString(fmt.Sprintf("- %s (author: %s)\n", r.Name, author))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Foodgram - Your culinary assistant © %d\n", now.UTC().Year()))

	return b.String()
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
