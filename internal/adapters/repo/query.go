package repo

import (
	"fmt"
	"strings"

	"recipebox/internal/domain"
)

const (
	avgRatingExpr     = "COALESCE(AVG(rr.rating), 0)"
	commentsCountExpr = "(SELECT COUNT(*) FROM recipe_comments rc WHERE rc.recipe_id = r.id)"
)

// summaryColumns совпадает по порядку с scanSummary.
const summaryColumns = `r.id, r.user_id, u.name, r.category_id, c.name, r.name, r.prep_time_minutes, r.servings,
       r.image, r.instructions, r.ingredients,
       ROUND(` + avgRatingExpr + `::numeric, 2)::float8 AS average_rating,
       COUNT(rr.id) AS ratings_count,
       ` + commentsCountExpr + ` AS comments_count,
       r.created_at, r.updated_at`

const summaryFrom = `
FROM recipes r
JOIN users u ON u.id = r.user_id
LEFT JOIN categories c ON c.id = r.category_id
LEFT JOIN recipe_ratings rr ON rr.recipe_id = r.id`

const summaryGroupBy = "GROUP BY r.id, u.id, c.id"

var orderBy = map[domain.SortKey]string{
	domain.SortNewest:       "r.created_at DESC",
	domain.SortOldest:       "r.created_at ASC",
	domain.SortNameAsc:      "r.name ASC NULLS LAST",
	domain.SortNameDesc:     "r.name DESC NULLS LAST",
	domain.SortRatingDesc:   avgRatingExpr + " DESC, r.created_at DESC",
	domain.SortRatingAsc:    avgRatingExpr + " ASC, r.created_at DESC",
	domain.SortCommentsDesc: commentsCountExpr + " DESC, r.created_at DESC",
	domain.SortCommentsAsc:  commentsCountExpr + " ASC, r.created_at DESC",
}

type sqlBuilder struct {
	args   []any
	where  []string
	having []string
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *sqlBuilder) compare(target *[]string, expr string, f *domain.RangeFilter) {
	if f == nil {
		return
	}
	*target = append(*target, fmt.Sprintf("%s %s %s::float8", expr, f.Operator.SQL(), b.arg(f.Value)))
}

// escapeLike экранирует спецсимволы шаблона ILIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// BuildListQuery собирает SQL страницы ленты и запрос общего количества.
// Построчные фильтры попадают в WHERE, фильтры по агрегатам в HAVING.
func BuildListQuery(q domain.ListQuery) (listSQL, countSQL string, args []any) {
	b := &sqlBuilder{}
	f := q.Filter

	if f.CategoryID != nil {
		b.where = append(b.where, "r.category_id = "+b.arg(*f.CategoryID))
	}
	b.compare(&b.where, "r.servings", f.Servings)
	b.compare(&b.where, "r.prep_time_minutes", f.PrepTime)
	if owner, ok := q.OwnerRestriction(); ok {
		b.where = append(b.where, "r.user_id = "+b.arg(owner))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := b.arg("%" + escapeLike(search) + "%")
		b.where = append(b.where, fmt.Sprintf("(r.name ILIKE %[1]s OR r.instructions ILIKE %[1]s OR r.ingredients ILIKE %[1]s)", p))
	}
	b.compare(&b.having, avgRatingExpr, f.Rating)
	b.compare(&b.having, commentsCountExpr, f.Comments)

	var grouped strings.Builder
	grouped.WriteString(summaryFrom)
	if len(b.where) > 0 {
		grouped.WriteString("\nWHERE " + strings.Join(b.where, " AND "))
	}
	grouped.WriteString("\n" + summaryGroupBy)
	if len(b.having) > 0 {
		grouped.WriteString("\nHAVING " + strings.Join(b.having, " AND "))
	}
	body := grouped.String()

	countSQL = "SELECT COUNT(*) FROM (SELECT r.id" + body + ") sub"

	order, ok := orderBy[q.Sort]
	if !ok {
		order = orderBy[domain.SortNewest]
	}
	// LIMIT и OFFSET берутся из нормализованного запроса, аргументы у обоих запросов общие.
	listSQL = "SELECT " + summaryColumns + body +
		"\nORDER BY " + order + ", r.id DESC" +
		fmt.Sprintf("\nLIMIT %d OFFSET %d", q.PerPage, q.Offset())
	return listSQL, countSQL, b.args
}
