package canvasrenderer

import (
	"image/color"
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/memegen/layout"
)

// ViewFace 返回编辑视图使用的字体面（semibold），字号单位为像素。
func (r *Renderer) ViewFace(sizePx float64, col color.Color) (*canvas.FontFace, error) {
	family, err := r.family(r.viewFont)
	if err != nil {
		return nil, err
	}
	return family.Face(layout.PxToPt(sizePx), col, canvas.FontRegular, canvas.FontNormal), nil
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：width/fontSize 均为像素；画布上 1mm 即 1px，字体面宽度可直接比较。
func (r *Renderer) LayoutLines(content string, width, fontSize float64) ([]layout.TextLine, error) {
	face, err := r.ViewFace(fontSize, canvas.Black)
	if err != nil {
		return nil, err
	}
	lines := greedyWrapTokens(content, width, face)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: ""}}
	}
	return lines, nil
}

func greedyWrapTokens(content string, width float64, face *canvas.FontFace) []layout.TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	var lines []layout.TextLine
	var builder strings.Builder
	currentWidth := 0.0

	emit := func(force bool) {
		if builder.Len() == 0 {
			if force {
				lines = append(lines, layout.TextLine{Content: "", Width: 0})
			}
			return
		}
		lines = append(lines, layout.TextLine{Content: builder.String(), Width: currentWidth})
		builder.Reset()
		currentWidth = 0
	}

	// 优先在空白处分割，单词超过限制时在词内拆分。
	// 行首的空白被丢弃，与浏览器折行一致。
	appendToken := func(token string) {
		if builder.Len() == 0 && strings.TrimSpace(token) == "" {
			return
		}
		builder.WriteString(token)
		currentWidth += face.TextWidth(token)
	}

	for _, token := range tokenizeContent(content) {
		if token == "\n" {
			emit(true)
			continue
		}
		tokenWidth := face.TextWidth(token)
		isSpace := strings.TrimSpace(token) == ""
		if currentWidth > 0 && currentWidth+tokenWidth > limit {
			emit(false)
			if isSpace {
				continue
			}
		}
		if tokenWidth <= limit {
			appendToken(token)
			continue
		}
		for _, chunk := range splitTokenByWidth(token, limit, face) {
			chunkWidth := face.TextWidth(chunk)
			if currentWidth > 0 && currentWidth+chunkWidth > limit {
				emit(false)
			}
			appendToken(chunk)
		}
	}
	emit(true)
	return trimTrailingSpace(lines, face)
}

// trimTrailingSpace 去掉每行末尾的空白并重新计算宽度。
func trimTrailingSpace(lines []layout.TextLine, face *canvas.FontFace) []layout.TextLine {
	for i := range lines {
		trimmed := strings.TrimRightFunc(lines[i].Content, unicode.IsSpace)
		if trimmed != lines[i].Content {
			lines[i].Content = trimmed
			lines[i].Width = face.TextWidth(trimmed)
		}
	}
	return lines
}

func tokenizeContent(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitTokenByWidth(token string, limit float64, face *canvas.FontFace) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var current []rune
	for _, r := range token {
		current = append(current, r)
		if len(current) > 1 && face.TextWidth(string(current)) > limit {
			parts = append(parts, string(current[:len(current)-1]))
			current = current[len(current)-1:]
		}
	}
	if len(current) > 0 {
		parts = append(parts, string(current))
	}
	return parts
}
