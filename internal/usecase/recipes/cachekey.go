package recipes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"recipebox/internal/domain"
)

// CacheKeyPrefix общий для всех страниц ленты, по нему кэш сбрасывается целиком.
const CacheKeyPrefix = "recipe_search:"

// CacheKey строит ключ страницы ленты. Равные по смыслу запросы дают равные ключи:
// пустые значения отбрасываются, числа пишутся в кратчайшей форме, поиск
// приводится к нижнему регистру.
func CacheKey(q domain.ListQuery) string {
	params := normalizedParams(q)
	// json.Marshal сортирует ключи map.
	payload, _ := json.Marshal(params)
	sum := sha256.Sum256(payload)
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}

func normalizedParams(q domain.ListQuery) map[string]any {
	params := map[string]any{
		"sort_by":  string(domain.ParseSortKey(string(q.Sort))),
		"page":     q.Page,
		"per_page": q.PerPage,
	}
	f := q.Filter
	if f.CategoryID != nil {
		params["category_id"] = *f.CategoryID
	}
	putRange(params, "servings", f.Servings)
	putRange(params, "prep_time", f.PrepTime)
	putRange(params, "rating", f.Rating)
	putRange(params, "comments", f.Comments)
	if owner, ok := q.OwnerRestriction(); ok {
		params["my_recipes"] = true
		params["user_id"] = owner
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		params["search"] = search
	}
	return params
}

func putRange(params map[string]any, name string, f *domain.RangeFilter) {
	if f == nil {
		return
	}
	params[name+"_operator"] = string(f.Operator)
	params[name+"_value"] = strconv.FormatFloat(f.Value, 'f', -1, 64)
}
