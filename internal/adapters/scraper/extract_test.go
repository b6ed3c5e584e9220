package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestExtractFullPage(t *testing.T) {
	draft, err := NewExtractor().Extract(loadFixture(t, "bolo_de_cenoura.html"))
	require.NoError(t, err)

	require.Equal(t, "Bolo de cenoura", draft.Name)
	require.NotNil(t, draft.CategoryName)
	require.Equal(t, "Bolos e tortas doces", *draft.CategoryName)
	require.NotNil(t, draft.Servings)
	require.Equal(t, 12, *draft.Servings)
	require.NotNil(t, draft.PrepTimeMinutes)
	require.Equal(t, 90, *draft.PrepTimeMinutes)

	require.Equal(t,
		"<ul>"+
			"<li><strong>Massa</strong><ul><li>3 cenouras médias</li><li>4 ovos</li><li>1 xícara de óleo &amp; açúcar</li></ul></li>"+
			"<li><strong>Cobertura</strong><ul><li>1 colher de manteiga</li></ul></li>"+
			"</ul>",
		draft.Ingredients)

	require.Equal(t,
		"<ol>"+
			"<li><strong>Massa</strong> <p>Bata as cenouras com os ovos.</p><p>Asse por 40 minutos.</p></li>"+
			"<li><strong>Cobertura</strong> <p>Derreta a manteiga &lt;sem ferver&gt;</p></li>"+
			"</ol>",
		draft.Instructions)

	require.NotNil(t, draft.ImageURL)
	require.Equal(t, "https://static.example.com/bolo.jpg", *draft.ImageURL)
}

func TestExtractMissingFieldsAreEmpty(t *testing.T) {
	draft, err := NewExtractor().Extract("<html><body><p>nada aqui</p></body></html>")
	require.NoError(t, err)
	require.Equal(t, "", draft.Name)
	require.Nil(t, draft.CategoryName)
	require.Nil(t, draft.Servings)
	require.Nil(t, draft.PrepTimeMinutes)
	require.Equal(t, "", draft.Ingredients)
	require.Equal(t, "", draft.Instructions)
	require.Nil(t, draft.ImageURL)
}

func TestExtractUnparsable(t *testing.T) {
	for _, page := range []string{"", "   \n\t", "<html></html>"} {
		_, err := NewExtractor().Extract(page)
		require.ErrorIs(t, err, ErrUnparsableDocument, "страница %q", page)
	}
}

func TestExtractTitleFallbacks(t *testing.T) {
	cases := map[string]string{
		`<h1 class="u-title-page big">Com classe u-title</h1>`:                 "Com classe u-title",
		`<div><h1>  Primeiro   h1 </h1><h1>Segundo</h1></div>`:                 "Primeiro h1",
		`<span class="u-title-page">Span</span><h1>Outro</h1>`:                 "Span",
		`<h1 class="u-title-page">Exato</h1><h1 class="x">Outro</h1>`:          "Exato",
		`<span class="u-title-page">  </span><h1>Bolo de cenoura</h1>`:         "Bolo de cenoura",
		`<ul class="breadcrumb"><li>Início</li><li><h1> Pudim </h1></li></ul>`: "Pudim",
	}
	for page, want := range cases {
		draft, err := NewExtractor().Extract(page)
		require.NoError(t, err)
		require.Equal(t, want, draft.Name)
	}
}

func TestExtractCategoryWithoutLink(t *testing.T) {
	page := `<ul class="breadcrumb"><li>Início</li><li> Massas </li><li>Lasanha</li></ul>`
	draft, err := NewExtractor().Extract(page)
	require.NoError(t, err)
	require.NotNil(t, draft.CategoryName)
	require.Equal(t, "Massas", *draft.CategoryName)

	emptyLink := `<ul class="breadcrumb"><li>Início</li><li><a href="/doces"> </a> Doces </li><li>Pudim</li></ul>`
	draft, err = NewExtractor().Extract(emptyLink)
	require.NoError(t, err)
	require.NotNil(t, draft.CategoryName)
	require.Equal(t, "Doces", *draft.CategoryName)

	blank := `<ul class="breadcrumb"><li>Início</li><li>  </li><li>Pudim</li></ul>`
	draft, err = NewExtractor().Extract(blank)
	require.NoError(t, err)
	require.Nil(t, draft.CategoryName)

	single := `<ul class="breadcrumb"><li>Início</li></ul>`
	draft, err = NewExtractor().Extract(single)
	require.NoError(t, err)
	require.Nil(t, draft.CategoryName)
}

func TestExtractServings(t *testing.T) {
	cases := map[string]*int{
		"Ingredientes (8 porções)": intPtr(8),
		"Ingredientes (1 porção)":  intPtr(1),
		"Ingredients (4 Servings)": intPtr(4),
		"Ingredientes":             nil,
	}
	for header, want := range cases {
		page := `<section class="recipe-section recipe-ingredients"><header><h2>` + header + `</h2></header></section>`
		draft, err := NewExtractor().Extract(page)
		require.NoError(t, err)
		require.Equal(t, want, draft.Servings, header)
	}
}

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"PT1H30M", 90, true},
		{"PT2H", 120, true},
		{"PT45M", 45, true},
		{"pt15m", 15, true},
		{"PT", 0, false},
		{"", 0, false},
		{"1 hora", 0, false},
	}
	for _, c := range cases {
		got, ok := parseISODuration(c.in)
		require.Equal(t, c.ok, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestParseTextDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1h 30min", 90, true},
		{"1h30min", 90, true},
		{"2h", 120, true},
		{"45 min", 45, true},
		{"2 horas 15 min", 135, true},
		{"2 horas e 30 minutos", 150, true},
		{"1 hora e 5 min", 65, true},
		{"rápido", 0, false},
	}
	for _, c := range cases {
		got, ok := parseTextDuration(c.in)
		require.Equal(t, c.ok, ok, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestExtractPrepTimeSources(t *testing.T) {
	page := func(attrs, text string) string {
		return `<section class="recipe-section recipe-steps"><div class="recipe-steps-info"><time ` + attrs + `>` + text + `</time></div></section>`
	}
	cases := []struct {
		html string
		want *int
	}{
		{page(`title="PT50M"`, "50 min"), intPtr(50)},
		{page(`datetime="bad" title="PT1H"`, ""), intPtr(60)},
		{page(``, "45 min"), intPtr(45)},
		{page(``, "sem tempo"), nil},
	}
	for _, c := range cases {
		draft, err := NewExtractor().Extract(c.html)
		require.NoError(t, err)
		require.Equal(t, c.want, draft.PrepTimeMinutes, c.html)
	}
}

func TestExtractFlatIngredients(t *testing.T) {
	page := `<section class="recipe-section recipe-ingredients"><ul>
		<li><span class="recipe-ingredients-item-label">2 tomates</span></li>
		<li><span class="recipe-ingredients-item-label">sal</span></li>
	</ul></section>`
	draft, err := NewExtractor().Extract(page)
	require.NoError(t, err)
	require.Equal(t, "<ul><li>2 tomates</li><li>sal</li></ul>", draft.Ingredients)
}

func TestExtractEmptySubsectionsFallBackToFlat(t *testing.T) {
	page := `<section class="recipe-section recipe-ingredients">
		<section><p>vazio</p></section>
		<ul><li><span class="recipe-ingredients-item-label">farinha</span></li></ul>
	</section>`
	draft, err := NewExtractor().Extract(page)
	require.NoError(t, err)
	require.Equal(t, "<ul><li>farinha</li></ul>", draft.Ingredients)
}

func TestExtractStepsWithoutItemClass(t *testing.T) {
	page := `<section class="recipe-section recipe-steps"><ol>
		<li><div class="recipe-steps-text"><p>Misture tudo.</p></div></li>
		<li class="u-hidden"><div class="recipe-steps-text"><p>Oculto</p></div></li>
		<li><div class="recipe-steps-text"></div></li>
	</ol></section>`
	draft, err := NewExtractor().Extract(page)
	require.NoError(t, err)
	require.Equal(t, "<ol><li><p>Misture tudo.</p></li></ol>", draft.Instructions)

	onlyAds := `<section class="recipe-section recipe-steps"><ol><li class="ad-box"><div class="recipe-steps-text"><p>x</p></div></li></ol></section>`
	draft, err = NewExtractor().Extract(onlyAds)
	require.NoError(t, err)
	require.Equal(t, "", draft.Instructions)
}

func TestExtractImageStrategies(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{
			name: "fallback player img",
			html: `<picture class="player-fallback-img u-hidden"><img src="https://img/a.jpg"></picture>`,
			want: "https://img/a.jpg",
		},
		{
			name: "fallback player srcset",
			html: `<picture class="player-fallback-img u-hidden"><source srcset="https://img/b.webp 1x, https://img/b2.webp 2x"><img src=""></picture>`,
			want: "https://img/b.webp",
		},
		{
			name: "single cover img",
			html: `<div class="recipe-cover"><picture><img src="https://img/c.jpg"></picture></div>`,
			want: "https://img/c.jpg",
		},
		{
			name: "cover srcset prefers second",
			html: `<div class="recipe-cover"><picture><source srcset="https://img/blur.webp"></picture><picture><source srcset="https://img/d.webp 1x"></picture></div>`,
			want: "https://img/d.webp",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			draft, err := NewExtractor().Extract(c.html)
			require.NoError(t, err)
			require.NotNil(t, draft.ImageURL)
			require.Equal(t, c.want, *draft.ImageURL)
		})
	}
}

func TestFirstSrcsetURL(t *testing.T) {
	got, ok := firstSrcsetURL("https://img/x.webp, https://img/y.webp 2x")
	require.True(t, ok)
	require.Equal(t, "https://img/x.webp", got)

	_, ok = firstSrcsetURL("  ")
	require.False(t, ok)
}

func intPtr(v int) *int { return &v }
