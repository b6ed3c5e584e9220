package domain

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Operator задаёт сравнение для числовых фильтров.
type Operator string

const (
	OperatorExact Operator = "exact"
	OperatorAbove Operator = "above"
	OperatorBelow Operator = "below"
)

// SQL возвращает оператор сравнения. above и below включают границу.
func (o Operator) SQL() string {
	switch o {
	case OperatorAbove:
		return ">="
	case OperatorBelow:
		return "<="
	default:
		return "="
	}
}

// Valid сообщает, известен ли оператор.
func (o Operator) Valid() bool {
	switch o {
	case OperatorExact, OperatorAbove, OperatorBelow:
		return true
	}
	return false
}

// RangeFilter задаёт пару оператор/значение. nil-фильтр означает отсутствие ограничения.
type RangeFilter struct {
	Operator Operator
	Value    float64
}

// ParseRangeFilter собирает фильтр из сырой пары. Если одной из частей нет или она
// не разбирается, фильтр считается отсутствующим.
func ParseRangeFilter(operator, value string) *RangeFilter {
	op := Operator(strings.ToLower(strings.TrimSpace(operator)))
	raw := strings.TrimSpace(value)
	if !op.Valid() || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &RangeFilter{Operator: op, Value: v}
}

// SortKey задаёт ключ сортировки ленты.
type SortKey string

const (
	SortNewest       SortKey = "newest"
	SortOldest       SortKey = "oldest"
	SortNameAsc      SortKey = "name_asc"
	SortNameDesc     SortKey = "name_desc"
	SortRatingDesc   SortKey = "rating_desc"
	SortRatingAsc    SortKey = "rating_asc"
	SortCommentsDesc SortKey = "comments_desc"
	SortCommentsAsc  SortKey = "comments_asc"
)

// ParseSortKey возвращает SortNewest для пустых и неизвестных значений.
func ParseSortKey(raw string) SortKey {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	switch key {
	case SortNewest, SortOldest, SortNameAsc, SortNameDesc,
		SortRatingDesc, SortRatingAsc, SortCommentsDesc, SortCommentsAsc:
		return key
	}
	return SortNewest
}

// ListFilter содержит фильтры ленты, по одному полю на измерение.
type ListFilter struct {
	CategoryID *int64
	Servings   *RangeFilter
	PrepTime   *RangeFilter
	Rating     *RangeFilter
	Comments   *RangeFilter
	MyRecipes  bool
	Search     string
}

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// ListQuery описывает запрос страницы ленты.
type ListQuery struct {
	Filter    ListFilter
	Sort      SortKey
	Page      int
	PerPage   int
	Requester *int64
}

// OwnerRestriction возвращает id владельца, если фильтр «мои рецепты» действительно применяется.
func (q ListQuery) OwnerRestriction() (int64, bool) {
	if q.Filter.MyRecipes && q.Requester != nil {
		return *q.Requester, true
	}
	return 0, false
}

// Offset возвращает смещение для LIMIT/OFFSET.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// Normalize приводит страницу, размер страницы и сортировку к допустимым значениям.
func (q ListQuery) Normalize(defaultPerPage int) ListQuery {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	// Offset не должен переполняться: такая страница всё равно пустая.
	if maxPage := math.MaxInt / q.PerPage; q.Page > maxPage {
		q.Page = maxPage
	}
	q.Sort = ParseSortKey(string(q.Sort))
	q.Filter.Search = strings.TrimSpace(q.Filter.Search)
	return q
}

// ParseListQuery разбирает query-параметры ленты. Некорректные значения игнорируются.
func ParseListQuery(values url.Values, requester *int64, defaultPerPage int) ListQuery {
	q := ListQuery{
		Filter: ListFilter{
			Servings:  ParseRangeFilter(values.Get("servings_operator"), values.Get("servings_value")),
			PrepTime:  ParseRangeFilter(values.Get("prep_time_operator"), values.Get("prep_time_value")),
			Rating:    ParseRangeFilter(values.Get("rating_operator"), values.Get("rating_value")),
			Comments:  ParseRangeFilter(values.Get("comments_operator"), values.Get("comments_value")),
			MyRecipes: parseBool(values.Get("my_recipes")),
			Search:    values.Get("search"),
		},
		Sort:      SortKey(values.Get("sort_by")),
		Requester: requester,
	}
	if raw := strings.TrimSpace(values.Get("category_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			q.Filter.CategoryID = &id
		}
	}
	if page, err := strconv.Atoi(strings.TrimSpace(values.Get("page"))); err == nil {
		q.Page = page
	}
	if perPage, err := strconv.Atoi(strings.TrimSpace(values.Get("per_page"))); err == nil {
		q.PerPage = perPage
	}
	return q.Normalize(defaultPerPage)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
