package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/internal/domain/model"
)

func TestSpecification_Leaves(t *testing.T) {
	t.Parallel()

	circle := model.GeoCircle{Center: model.NewPoint(34.1, -118.1), Radius: 0.05}

	cases := []struct {
		name          string
		spec          model.Specification
		expectedOp    model.SpecOperator
		expectedValue any
	}{
		{name: "eq", spec: model.Eq("difficulty", "easy"), expectedOp: model.SpecOpEq, expectedValue: "easy"},
		{name: "not eq", spec: model.NotEq("secretTour", true), expectedOp: model.SpecOpNotEq, expectedValue: true},
		{name: "gt", spec: model.Gt("price", 10.0), expectedOp: model.SpecOpGt, expectedValue: 10.0},
		{name: "gte", spec: model.Gte("price", 10.0), expectedOp: model.SpecOpGte, expectedValue: 10.0},
		{name: "lt", spec: model.Lt("price", 10.0), expectedOp: model.SpecOpLt, expectedValue: 10.0},
		{name: "lte", spec: model.Lte("price", 10.0), expectedOp: model.SpecOpLte, expectedValue: 10.0},
		{name: "in", spec: model.In("role", "guide", "lead-guide"), expectedOp: model.SpecOpIn, expectedValue: []any{"guide", "lead-guide"}},
		{name: "between", spec: model.Between("price", 1, 9), expectedOp: model.SpecOpBetween, expectedValue: []any{1, 9}},
		{name: "like", spec: model.Like("name", "forest"), expectedOp: model.SpecOpLike, expectedValue: "forest"},
		{name: "geo within", spec: model.GeoWithin("startLocation", circle), expectedOp: model.SpecOpGeoWithin, expectedValue: circle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.False(t, tc.spec.IsComposite())
			require.Nil(t, tc.spec.Children())
			require.Equal(t, tc.expectedOp, tc.spec.Operator())
			require.Equal(t, tc.expectedValue, tc.spec.Value())
		})
	}
}

func TestSpecification_Composites(t *testing.T) {
	t.Parallel()

	easy := model.Eq("difficulty", "easy")
	cheap := model.Lt("price", 500.0)
	short := model.Lte("duration", 5.0)

	must := easy.Must(cheap)
	require.Equal(t, model.SpecOpMust, must.Operator())
	require.Len(t, must.Children(), 2)

	extended := must.Must(short)
	require.Len(t, extended.Children(), 3)
	require.Len(t, must.Children(), 2, "extending a composite must not alter it")

	should := easy.Should(cheap).Should(short)
	require.Equal(t, model.SpecOpShould, should.Operator())
	require.Len(t, should.Children(), 3)

	not := easy.MustNot()
	require.Equal(t, model.SpecOpMustNot, not.Operator())
	require.Equal(t, easy, not.MustNot(), "double negation unwraps")

	mixed := must.Should(short)
	require.Equal(t, model.SpecOpShould, mixed.Operator())
	require.Equal(t, model.SpecOpMust, mixed.Children()[0].Operator())
}

func TestCriteria_IsImmutable(t *testing.T) {
	t.Parallel()

	base := model.NewCriteria().Where(model.Eq("isActive", true))
	first := base.Where(model.Eq("role", "guide"))
	second := base.Where(model.Eq("role", "admin"))

	require.Equal(t, model.SpecOpEq, base.Spec().Operator())
	require.Equal(t, "guide", first.Spec().Children()[1].Value())
	require.Equal(t, "admin", second.Spec().Children()[1].Value())

	sorted := base.OrderBy("-ratingAverage", "price")
	require.False(t, base.HasSorting())
	require.Equal(t, []model.SortField{
		{Field: "ratingAverage", Direction: model.SortDesc},
		{Field: "price", Direction: model.SortAsc},
	}, sorted.Sorting())

	paged := base.Paginate(3, 20)
	require.False(t, base.HasPagination())
	require.Equal(t, 40, paged.Skip())
	require.Zero(t, base.Skip())
}
