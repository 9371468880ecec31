package layout

// TextLine 表示排版后的一行文本及其宽度（像素）。
type TextLine struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// Typesetter 负责根据字号与宽度约束将文本拆成可绘制的行。
// 优先在空白处断行，单词超过宽度时在词内拆分（overflow-wrap: anywhere）。
type Typesetter interface {
	LayoutLines(content string, width, fontSize float64) ([]TextLine, error)
}

// ClampLines 最多保留 max 行；被截断时在最后一行末尾追加省略号，
// 并用 fits 判断追加后是否仍在宽度内，不够时逐字回退。
func ClampLines(lines []TextLine, max int, fits func(string) bool) ([]TextLine, bool) {
	if max <= 0 || len(lines) <= max {
		return lines, false
	}
	out := make([]TextLine, max)
	copy(out, lines[:max])
	last := []rune(out[max-1].Content)
	for len(last) > 0 && !fits(string(last)+"…") {
		last = last[:len(last)-1]
	}
	out[max-1].Content = string(last) + "…"
	return out, true
}
