package model_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/internal/domain/model"
)

func parse(t *testing.T, raw string) model.QuerySpec {
	t.Helper()

	values, err := url.ParseQuery(raw)
	require.NoError(t, err)

	return model.NewQuerySpec(values)
}

func TestQueryFeatures_Filter(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.TourSchema, 0)

	cases := []struct {
		name          string
		query         string
		expectedOp    model.SpecOperator
		expectedField string
		expectedValue any
		expectedErr   string
	}{
		{
			name:          "comparison suffix becomes a tagged predicate",
			query:         "price[gte]=100",
			expectedOp:    model.SpecOpGte,
			expectedField: "price",
			expectedValue: 100.0,
		},
		{
			name:          "lt suffix",
			query:         "duration[lt]=7",
			expectedOp:    model.SpecOpLt,
			expectedField: "duration",
			expectedValue: 7.0,
		},
		{
			name:          "plain key is an equality",
			query:         "difficulty=easy",
			expectedOp:    model.SpecOpEq,
			expectedField: "difficulty",
			expectedValue: "easy",
		},
		{
			name:          "repeated key is a membership",
			query:         "difficulty=easy&difficulty=medium",
			expectedOp:    model.SpecOpIn,
			expectedField: "difficulty",
			expectedValue: []any{"easy", "medium"},
		},
		{
			name:          "control keys are not predicates",
			query:         "page=2&sort=price&limit=5&fields=name&price[lte]=900",
			expectedOp:    model.SpecOpLte,
			expectedField: "price",
			expectedValue: 900.0,
		},
		{
			name:        "unknown operator is rejected",
			query:       "price[regex]=1",
			expectedErr: `unsupported operator "regex" on "price"`,
		},
		{
			name:        "unknown field is rejected",
			query:       "password=secret",
			expectedErr: `unknown field "password"`,
		},
		{
			name:        "non numeric value for a number field is rejected",
			query:       "price[gte]=cheap",
			expectedErr: "price must be a number",
		},
		{
			name:        "malformed key is rejected",
			query:       "price[gte=1",
			expectedErr: "malformed filter",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			criteria, err := features.Filter(model.NewCriteria(), parse(t, tc.query))

			if tc.expectedErr != "" {
				var validationErrs *model.ValidationErrors
				require.ErrorAs(t, err, &validationErrs)
				require.ErrorContains(t, err, tc.expectedErr)

				return
			}

			require.NoError(t, err)
			require.True(t, criteria.HasSpec())

			spec := criteria.Spec()
			require.Equal(t, tc.expectedOp, spec.Operator())
			require.Equal(t, tc.expectedField, spec.Field())
			require.Equal(t, tc.expectedValue, spec.Value())
		})
	}
}

func TestQueryFeatures_FilterCombinesPredicates(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.TourSchema, 0)

	criteria, err := features.Filter(model.NewCriteria(), parse(t, "price[gte]=100&price[lt]=500&difficulty=easy"))
	require.NoError(t, err)

	spec := criteria.Spec()
	require.Equal(t, model.SpecOpMust, spec.Operator())
	require.Len(t, spec.Children(), 3)
}

func TestQueryFeatures_FilterKeepsScope(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.ReviewSchema, 0)
	scoped := model.NewCriteria().Where(model.Eq("tour", model.ID("0191a2b3-0000-7000-8000-000000000001")))

	criteria, err := features.Filter(scoped, parse(t, "rating[gte]=4"))
	require.NoError(t, err)

	children := criteria.Spec().Children()
	require.Len(t, children, 2)
	require.Equal(t, "tour", children[0].Field())
	require.Equal(t, "rating", children[1].Field())

	require.Equal(t, model.SpecOpEq, scoped.Spec().Operator(), "input criteria must stay untouched")
}

func TestQueryFeatures_Sort(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.TourSchema, 0)

	cases := []struct {
		name        string
		query       string
		expected    []model.SortField
		expectedErr bool
	}{
		{
			name:     "defaults to newest first",
			query:    "",
			expected: []model.SortField{{Field: "createdAt", Direction: model.SortDesc}},
		},
		{
			name:  "descending price then ascending name",
			query: "sort=-price,name",
			expected: []model.SortField{
				{Field: "price", Direction: model.SortDesc},
				{Field: "name", Direction: model.SortAsc},
			},
		},
		{
			name:     "blank entries are ignored",
			query:    "sort=price,,",
			expected: []model.SortField{{Field: "price", Direction: model.SortAsc}},
		},
		{
			name:        "unknown field is rejected",
			query:       "sort=-popularity",
			expectedErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			criteria, err := features.Sort(model.NewCriteria(), parse(t, tc.query))
			if tc.expectedErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, criteria.Sorting())
		})
	}
}

func TestQueryFeatures_Project(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.TourSchema, 0)

	criteria, err := features.Project(model.NewCriteria(), parse(t, ""))
	require.NoError(t, err)
	require.Equal(t, model.Projection{Exclude: []string{model.VersionField}}, criteria.Projection())

	criteria, err = features.Project(model.NewCriteria(), parse(t, "fields=name,price,ratingAverage"))
	require.NoError(t, err)
	require.Equal(t, model.Projection{Include: []string{"name", "price", "ratingAverage"}}, criteria.Projection())

	_, err = features.Project(model.NewCriteria(), parse(t, "fields=name,password"))
	require.ErrorContains(t, err, `cannot select unknown field "password"`)
}

func TestQueryFeatures_Paginate(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.TourSchema, 50)

	cases := []struct {
		name          string
		query         string
		expectedPage  int
		expectedLimit int
		expectedSkip  int
		expectedErr   string
	}{
		{name: "defaults", query: "", expectedPage: 1, expectedLimit: 15, expectedSkip: 0},
		{name: "second page of ten", query: "page=2&limit=10", expectedPage: 2, expectedLimit: 10, expectedSkip: 10},
		{name: "limit at the bound", query: "limit=50", expectedPage: 1, expectedLimit: 50, expectedSkip: 0},
		{name: "limit above the bound", query: "limit=51", expectedErr: "limit must not exceed 50"},
		{name: "non numeric page", query: "page=abc", expectedErr: `page must be a positive integer, got "abc"`},
		{name: "zero limit", query: "limit=0", expectedErr: `limit must be a positive integer, got "0"`},
		{name: "negative page", query: "page=-1", expectedErr: "page must be a positive integer"},
		{name: "page overflowing the skip", query: "page=184467440737095518&limit=50", expectedErr: "page must not exceed"},
		{name: "last page whose skip fits", query: "page=184467440737095517&limit=50", expectedPage: 184467440737095517, expectedLimit: 50, expectedSkip: 9223372036854775800},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			criteria, err := features.Paginate(model.NewCriteria(), parse(t, tc.query))
			if tc.expectedErr != "" {
				require.ErrorContains(t, err, tc.expectedErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectedPage, criteria.Page())
			require.Equal(t, tc.expectedLimit, criteria.Limit())
			require.Equal(t, tc.expectedSkip, criteria.Skip())
		})
	}
}

func TestQueryFeatures_Apply(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.TourSchema, 0)

	criteria, err := features.Apply(model.NewCriteria(), parse(t, "price[gte]=100&sort=-price,name&fields=name,price&page=3&limit=5"))
	require.NoError(t, err)

	require.Equal(t, model.SpecOpGte, criteria.Spec().Operator())
	require.Equal(t, []model.SortField{
		{Field: "price", Direction: model.SortDesc},
		{Field: "name", Direction: model.SortAsc},
	}, criteria.Sorting())
	require.Equal(t, []string{"name", "price"}, criteria.Projection().Include)
	require.Equal(t, 10, criteria.Skip())
	require.Equal(t, 5, criteria.Limit())
}

func TestQueryFeatures_ApplyReportsEveryProblem(t *testing.T) {
	t.Parallel()

	features := model.NewQueryFeatures(model.TourSchema, 0)

	_, err := features.Apply(model.NewCriteria(), parse(t, "price[near]=1&sort=bogus&page=x"))

	var validationErrs *model.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	require.Len(t, validationErrs.Errors, 3)
}

func TestQuerySpec_With(t *testing.T) {
	t.Parallel()

	original := parse(t, "limit=20&difficulty=easy")
	aliased := original.With(model.QueryKeyLimit, "5")

	require.Equal(t, []string{"5"}, aliased[model.QueryKeyLimit])
	require.Equal(t, []string{"20"}, original[model.QueryKeyLimit])
	require.Equal(t, []string{"easy"}, aliased["difficulty"])
}
