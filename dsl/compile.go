package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/memegen/binding"
	"github.com/ByLCY/memegen/layout"
)

// Layout 是脚本编译后的结果：一个已填充的编辑器以及坐标所在的显示尺寸。
type Layout struct {
	Editor      *layout.Editor
	DisplaySize float64 // 0 表示坐标已是 800×800 画布坐标
}

// Request 返回服务端渲染请求。
func (l *Layout) Request() layout.Request {
	req := l.Editor.Request()
	req.DisplaySize = l.DisplaySize
	return req
}

// Compile 通过 layout.Editor 重放脚本，使最小尺寸、字号范围、选中唯一性等约束与交互编辑一致。
// 文本中的 ${path} 用 data 替换。
func Compile(s *Script, data any) (*Layout, error) {
	if s == nil {
		return nil, fmt.Errorf("脚本为空")
	}
	e := layout.NewEditor()
	if err := e.SetTemplate(s.Template); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Pos, err)
	}

	out := &Layout{Editor: e}
	var selected int64
	for _, st := range s.Statements {
		switch {
		case st.Display != nil:
			if st.Display.Size <= 0 {
				return nil, fmt.Errorf("%s: display 必须为正数，实际 %g", st.Display.Pos, st.Display.Size)
			}
			out.DisplaySize = st.Display.Size
		case st.Text != nil:
			id, sel, err := addText(e, st.Text, data)
			if err != nil {
				return nil, err
			}
			if sel {
				selected = id
			}
		}
	}

	if selected != 0 {
		e.SelectAnnotation(selected)
	} else {
		e.Deselect()
	}
	return out, nil
}

func addText(e *layout.Editor, st *TextStatement, data any) (int64, bool, error) {
	text := binding.Interpolate(string(st.Content), data)
	a, ok := e.AddAnnotation(text)
	if !ok {
		return 0, false, fmt.Errorf("%s: 文本不能为空", st.Pos)
	}

	x, y, w, h := a.X, a.Y, a.Width, a.Height
	selected := false
	for _, p := range st.Props {
		switch {
		case p.At != nil:
			x, y = p.At.A, p.At.B
		case p.Size != nil:
			w, h = p.Size.A, p.Size.B
		case p.Font != nil:
			// 新增的标注处于选中状态，SetFontSize 作用于它
			e.SetFontSize(*p.Font)
		case p.Selected:
			selected = true
		}
	}
	e.ResizeAnnotation(a.ID, x, y, w, h)
	return a.ID, selected, nil
}

// Format 把编辑器状态写回脚本；Compile(ParseString(Format(...))) 得到相同的请求。
func Format(e *layout.Editor, displaySize float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "meme %d {\n", e.Template())
	if displaySize > 0 {
		fmt.Fprintf(&b, "  display %s\n", num(displaySize))
	}
	for _, a := range e.Annotations() {
		fmt.Fprintf(&b, "  text %s at %s, %s size %s, %s font %s",
			strconv.Quote(a.Text), num(a.X), num(a.Y), num(a.Width), num(a.Height), num(a.FontSize))
		if a.Selected {
			b.WriteString(" selected")
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")
	return b.String()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
