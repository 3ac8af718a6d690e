package handler

import "hash/fnv"

// sectionColors 已知单元的固定配色
var sectionColors = map[string]string{
	"Filmy, które zostały?":                      "#7fb069",
	"Pokazy Specjalne":                           "#6b9bd1",
	"Trzecie Oko":                                "#8fb8c7",
	"Oslo / Reykjavik":                           "#a8c686",
	"Front Wizualny":                             "#d4a574",
	"Klub Festiwalowy w Arsenale":                "#c19bd1",
	"Międzynarodowy Konkurs Nowe Horyzonty":      "#6ba3d6",
	"Shortlista":                                 "#9d7fb8",
	"Odkrycia":                                   "#6db4c4",
	"Wydarzenia specjalne":                       "#d48b7a",
	"Pokazy Galowe":                              "#8bb174",
	"Focus: Athina Rachel Tsangari":              "#deb887",
	"Retrospektywa: Anne-Marie Miéville":         "#8da5c4",
	"Retrospektywa: Anka Sasnal, Wilhelm Sasnal": "#d19bc4",
	"Nocne Szaleństwo":                           "#b8a4d1",
	"Lost Lost Lost":                             "#7eb89a",
	"Istoty Nocy":                                "#d1a4b8",
	"Fale":                                       "#6fb3a0",
	"Mistrzynie, Mistrzowie":                     "#e4c57c",
	"Retrospektywa: Glauber Rocha":               "#a48bc4",
	"Młode Horyzonty":                            "#87c5d6",
	"Sezon":                                      "#b8a8d6",
	"Retrospektywa: Lee Chang-dong":              "#d1a4b8",
	"Pokazy na Rynku":                            "#7db8b3",
	"Scena Artystyczna":                          "#d4976b",
	"Smart 7":                                    "#9cc5c7",
	"Pokazy w OPT Zamek w Leśnicy":               "#d6b894",
}

// fallbackPalette 未知单元按名称哈希取色
var fallbackPalette = []string{
	"#b8a8d6", "#8fb8c7", "#d4a574", "#7eb89a", "#c19bd1",
	"#6db4c4", "#e4c57c", "#d48b7a", "#87c5d6", "#a8c686",
}

// SectionColor 返回单元的显示颜色，同名单元永远同色
func SectionColor(section string) string {
	if c, ok := sectionColors[section]; ok {
		return c
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(section))
	return fallbackPalette[h.Sum32()%uint32(len(fallbackPalette))]
}
