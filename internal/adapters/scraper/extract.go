package scraper

import (
	"errors"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recipebox/internal/domain"
)

// ErrUnparsableDocument возвращается, когда из ответа не удаётся построить документ.
var ErrUnparsableDocument = errors.New("не удалось разобрать HTML страницы")

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	servingsRe = regexp.MustCompile(`(?i)\((\d+)\s*(?:porç(?:ão|ões)|servings?)\)`)
	isoRe      = regexp.MustCompile(`(?i)PT(?:(\d+)H)?(?:(\d+)M)?`)
	hoursRe    = regexp.MustCompile(`(?i)(\d+)\s*h(?:[a-z]*\s*(?:e\s+)?(\d+)\s*min)?`)
	minutesRe  = regexp.MustCompile(`(?i)(\d+)\s*min`)
	stepNumRe  = regexp.MustCompile(`^\d+\s*`)
)

const (
	ingredientsSection = "section.recipe-ingredients"
	stepsSection       = "section.recipe-steps"
	// Разметка из одних обёрток <ul></ul> без пунктов.
	minIngredientsHTML = 20
)

type (
	textStrategy func(doc *goquery.Document) (string, bool)
	intStrategy  func(doc *goquery.Document) (int, bool)
)

// HTMLExtractor разбирает страницу рецепта TudoGostoso.
// Для каждого поля есть упорядоченный список стратегий, побеждает первая сработавшая.
type HTMLExtractor struct {
	title        []textStrategy
	category     []textStrategy
	servings     []intStrategy
	prepTime     []intStrategy
	ingredients  []textStrategy
	instructions []textStrategy
	image        []textStrategy
}

// NewExtractor создаёт экстрактор со стратегиями по умолчанию.
func NewExtractor() *HTMLExtractor {
	return &HTMLExtractor{
		title: []textStrategy{
			firstText("span.u-title-page"),
			firstText("h1.u-title-page"),
			firstText(`h1[class*="u-title"]`),
			firstText("h1"),
			firstText("ul.breadcrumb > li:last-child h1"),
		},
		category:     []textStrategy{breadcrumbCategory},
		servings:     []intStrategy{servingsFromHeader},
		prepTime:     []intStrategy{prepTimeFromAttr("datetime"), prepTimeFromAttr("title"), prepTimeFromText},
		ingredients:  []textStrategy{groupedIngredients, flatIngredients},
		instructions: []textStrategy{instructionSteps},
		image: []textStrategy{
			attrOf("picture.player-fallback-img img", "src", false),
			srcsetOf("picture.player-fallback-img source[srcset]", false),
			attrOf(`div[class*="recipe-cover"] picture img[src]`, "src", true),
			srcsetOf(`div[class*="recipe-cover"] picture source[srcset]`, true),
			attrOf(`div[class*="recipe-cover"] picture:not(.recipe-cover-blur) img[src]`, "src", false),
		},
	}
}

// Extract строит черновик рецепта. Отсутствующие поля остаются пустыми,
// ошибка возвращается только для документа, который нельзя разобрать.
func (e *HTMLExtractor) Extract(page string) (domain.RecipeDraft, error) {
	if strings.TrimSpace(page) == "" {
		return domain.RecipeDraft{}, ErrUnparsableDocument
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return domain.RecipeDraft{}, ErrUnparsableDocument
	}
	if doc.Find("head *, body *").Length() == 0 && norm(doc.Text()) == "" {
		return domain.RecipeDraft{}, ErrUnparsableDocument
	}

	draft := domain.RecipeDraft{
		Name:         firstTextMatch(doc, e.title),
		Ingredients:  firstTextMatch(doc, e.ingredients),
		Instructions: firstTextMatch(doc, e.instructions),
	}
	if v := firstTextMatch(doc, e.category); v != "" {
		draft.CategoryName = &v
	}
	if v, ok := firstIntMatch(doc, e.servings); ok {
		draft.Servings = &v
	}
	if v, ok := firstIntMatch(doc, e.prepTime); ok {
		draft.PrepTimeMinutes = &v
	}
	if v := firstTextMatch(doc, e.image); v != "" {
		draft.ImageURL = &v
	}
	return draft, nil
}

func firstTextMatch(doc *goquery.Document, strategies []textStrategy) string {
	for _, s := range strategies {
		if v, ok := s(doc); ok {
			return v
		}
	}
	return ""
}

func firstIntMatch(doc *goquery.Document, strategies []intStrategy) (int, bool) {
	for _, s := range strategies {
		if v, ok := s(doc); ok {
			return v, true
		}
	}
	return 0, false
}

func norm(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func escaped(s string) string {
	return html.EscapeString(norm(s))
}

func firstText(selector string) textStrategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			return "", false
		}
		v := norm(sel.First().Text())
		return v, v != ""
	}
}

func breadcrumbCategory(doc *goquery.Document) (string, bool) {
	items := doc.Find("ul.breadcrumb > li")
	if items.Length() < 2 {
		return "", false
	}
	item := items.Eq(items.Length() - 2)
	if v := norm(item.Find("a").First().Text()); v != "" {
		return v, true
	}
	v := norm(item.Text())
	return v, v != ""
}

func servingsFromHeader(doc *goquery.Document) (int, bool) {
	header := doc.Find(ingredientsSection + " header h2").First()
	if header.Length() == 0 {
		return 0, false
	}
	m := servingsRe.FindStringSubmatch(header.Text())
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func prepTimeNode(doc *goquery.Document) *goquery.Selection {
	return doc.Find(stepsSection + ` div[class*="recipe-steps-info"] time`).First()
}

func prepTimeFromAttr(attr string) intStrategy {
	return func(doc *goquery.Document) (int, bool) {
		node := prepTimeNode(doc)
		if node.Length() == 0 {
			return 0, false
		}
		return parseISODuration(node.AttrOr(attr, ""))
	}
}

func prepTimeFromText(doc *goquery.Document) (int, bool) {
	node := prepTimeNode(doc)
	if node.Length() == 0 {
		return 0, false
	}
	return parseTextDuration(node.Text())
}

// parseISODuration понимает подмножество ISO-8601: PT#H, PT#M и PT#H#M.
func parseISODuration(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	m := isoRe.FindStringSubmatch(raw)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, false
	}
	return atoiOrZero(m[1])*60 + atoiOrZero(m[2]), true
}

// parseTextDuration разбирает подписи вида «1h 30min», «2 horas e 30 minutos», «2h», «45 min».
func parseTextDuration(raw string) (int, bool) {
	text := norm(raw)
	if m := hoursRe.FindStringSubmatch(text); m != nil {
		return atoiOrZero(m[1])*60 + atoiOrZero(m[2]), true
	}
	if m := minutesRe.FindStringSubmatch(text); m != nil {
		return atoiOrZero(m[1]), true
	}
	return 0, false
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func ingredientItems(sel *goquery.Selection, b *strings.Builder) {
	sel.Find("span.recipe-ingredients-item-label").Each(func(_ int, item *goquery.Selection) {
		if text := escaped(item.Text()); text != "" {
			b.WriteString("<li>" + text + "</li>")
		}
	})
}

func groupedIngredients(doc *goquery.Document) (string, bool) {
	groups := doc.Find(ingredientsSection + " section")
	if groups.Length() == 0 {
		return "", false
	}
	var b strings.Builder
	b.WriteString("<ul>")
	groups.Each(func(_ int, group *goquery.Selection) {
		subtitle := group.Find("h3.recipe-ingredients-subtitle").First()
		if subtitle.Length() > 0 {
			b.WriteString("<li><strong>" + escaped(subtitle.Text()) + "</strong><ul>")
		}
		ingredientItems(group, &b)
		if subtitle.Length() > 0 {
			b.WriteString("</ul></li>")
		}
	})
	b.WriteString("</ul>")
	out := b.String()
	if len(out) <= minIngredientsHTML {
		return "", false
	}
	return out, true
}

func flatIngredients(doc *goquery.Document) (string, bool) {
	items := doc.Find(ingredientsSection + " span.recipe-ingredients-item-label")
	if items.Length() == 0 {
		return "", false
	}
	var b strings.Builder
	b.WriteString("<ul>")
	ingredientItems(doc.Find(ingredientsSection), &b)
	b.WriteString("</ul>")
	return b.String(), true
}

func skippedStep(step *goquery.Selection) bool {
	class := step.AttrOr("class", "")
	return strings.Contains(class, "no-print") ||
		strings.Contains(class, "u-hidden") ||
		strings.Contains(class, "ad-")
}

func instructionSteps(doc *goquery.Document) (string, bool) {
	steps := doc.Find(stepsSection + " ol > li.recipe-steps-item")
	if steps.Length() == 0 {
		steps = doc.Find(stepsSection + " ol > li")
	}
	var b strings.Builder
	count := 0
	steps.Each(func(_ int, step *goquery.Selection) {
		if skippedStep(step) {
			return
		}
		title := step.Find("h3.recipe-steps-title").First()
		var body strings.Builder
		step.Find(`div[class*="recipe-steps-text"] p`).Each(func(_ int, p *goquery.Selection) {
			if text := escaped(p.Text()); text != "" {
				body.WriteString("<p>" + text + "</p>")
			}
		})
		if body.Len() == 0 {
			textDiv := step.Find(`div[class*="recipe-steps-text"]`).First()
			if textDiv.Length() > 0 {
				text := stepNumRe.ReplaceAllString(norm(textDiv.Text()), "")
				if title.Length() > 0 {
					text = strings.ReplaceAll(text, norm(title.Text()), "")
				}
				if text = escaped(text); text != "" {
					body.WriteString("<p>" + text + "</p>")
				}
			}
		}
		if body.Len() == 0 {
			return
		}
		b.WriteString("<li>")
		if title.Length() > 0 {
			b.WriteString("<strong>" + escaped(title.Text()) + "</strong> ")
		}
		b.WriteString(body.String())
		b.WriteString("</li>")
		count++
	})
	if count == 0 {
		return "", false
	}
	return "<ol>" + b.String() + "</ol>", true
}

func pick(sel *goquery.Selection, preferSecond bool) *goquery.Selection {
	if preferSecond && sel.Length() > 1 {
		return sel.Eq(1)
	}
	return sel.First()
}

func attrOf(selector, attr string, preferSecond bool) textStrategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			return "", false
		}
		v := strings.TrimSpace(pick(sel, preferSecond).AttrOr(attr, ""))
		return v, v != ""
	}
}

func srcsetOf(selector string, preferSecond bool) textStrategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			return "", false
		}
		return firstSrcsetURL(pick(sel, preferSecond).AttrOr("srcset", ""))
	}
}

// firstSrcsetURL возвращает первый URL из srcset вида "url 1x, url2 2x".
func firstSrcsetURL(srcset string) (string, bool) {
	fields := strings.Fields(srcset)
	if len(fields) == 0 {
		return "", false
	}
	return strings.TrimSuffix(fields[0], ","), true
}
