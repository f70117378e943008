package ingredient

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
)

// mockIngredientRepo applies the same case-insensitive prefix match the SQL
// ILIKE query does, so the service contract can be tested without a database.
type mockIngredientRepo struct {
	ingredients []*entities.Ingredient
}

func (m *mockIngredientRepo) GetIngredients(_ context.Context, name string) ([]*entities.Ingredient, error) {
	var result []*entities.Ingredient
	for _, ing := range m.ingredients {
		if name == "" || strings.HasPrefix(strings.ToLower(ing.Name), strings.ToLower(name)) {
			result = append(result, ing)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockIngredientRepo) GetIngredientByID(_ context.Context, id uint) (*entities.Ingredient, error) {
	for _, ing := range m.ingredients {
		if ing.ID == id {
			return ing, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIngredientRepo) GetIngredientsByIDs(_ context.Context, ids []uint) ([]*entities.Ingredient, error) {
	var result []*entities.Ingredient
	for _, id := range ids {
		for _, ing := range m.ingredients {
			if ing.ID == id {
				result = append(result, ing)
			}
		}
	}
	return result, nil
}

func newTestService() IngredientService {
	return NewIngredientService(&mockIngredientRepo{ingredients: []*entities.Ingredient{
		{ID: 1, Name: "eggplant", MeasurementUnit: "pcs"},
		{ID: 2, Name: "egg white", MeasurementUnit: "g"},
		{ID: 3, Name: "Eggs", MeasurementUnit: "pcs"},
		{ID: 4, Name: "milk", MeasurementUnit: "ml"},
	}})
}

func TestGetIngredientsPrefixFilter(t *testing.T) {
	svc := newTestService()

	res, err := svc.GetIngredients(context.Background(), "egg")
	require.NoError(t, err)

	names := make([]string, 0, len(res))
	for _, ing := range res {
		names = append(names, ing.Name)
	}
	// Prefix match, case-insensitive; "milk" stays out.
	assert.Equal(t, []string{"Eggs", "egg white", "eggplant"}, names)
}

func TestGetIngredientsEmptyQueryReturnsAll(t *testing.T) {
	svc := newTestService()

	res, err := svc.GetIngredients(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, res, 4)
}

func TestGetIngredientsNoMatch(t *testing.T) {
	svc := newTestService()

	res, err := svc.GetIngredients(context.Background(), "zucchini")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestGetIngredientByID(t *testing.T) {
	svc := newTestService()

	res, err := svc.GetIngredientByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "milk", res.Name)
	assert.Equal(t, "ml", res.MeasurementUnit)

	_, err = svc.GetIngredientByID(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}
