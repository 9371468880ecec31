package layout

import (
	"fmt"
	"math"
	"strings"
)

// Editor 维护标注列表、唯一选中项与当前模板编号。
// 所有操作同步执行且不做 I/O；Editor 不是并发安全的，每个会话各持有一个。
type Editor struct {
	items    []Annotation // 插入顺序即绘制顺序，后加入的在上层
	selected int64        // 0 表示无选中
	nextID   int64
	template int
}

// NewEditor 返回一个空编辑器，模板从 1 号开始。
func NewEditor() *Editor {
	return &Editor{template: 1}
}

// AddAnnotation 以默认几何新增标注并设为唯一选中项。
// 去掉首尾空白后为空时不做任何修改，返回 false。
func (e *Editor) AddAnnotation(text string) (Annotation, bool) {
	if strings.TrimSpace(text) == "" {
		return Annotation{}, false
	}
	e.nextID++
	a := Annotation{
		ID:       e.nextID,
		Text:     text,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FontSize: DefaultFontSize,
	}
	e.items = append(e.items, a)
	e.selected = a.ID
	a.Selected = true
	return a, true
}

// MoveAnnotation 更新位置。这里不做越界裁剪：拖拽交互本身把文本框限制在画布内，
// 直接调用者需自行保证坐标有效。
func (e *Editor) MoveAnnotation(id int64, x, y float64) {
	if i := e.index(id); i >= 0 {
		e.items[i].X = x
		e.items[i].Y = y
	}
}

// ResizeAnnotation 更新位置与尺寸，宽高在写入前提升到最小值。
func (e *Editor) ResizeAnnotation(id int64, x, y, width, height float64) {
	i := e.index(id)
	if i < 0 {
		return
	}
	e.items[i].X = x
	e.items[i].Y = y
	e.items[i].Width = floorSize(width, MinWidth)
	e.items[i].Height = floorSize(height, MinHeight)
}

// SetFontSize 只作用于当前选中项，取值裁剪到 [MinFontSize, MaxFontSize]。
func (e *Editor) SetFontSize(value float64) {
	i := e.index(e.selected)
	if i < 0 {
		return
	}
	e.items[i].FontSize = ClampFontSize(value)
}

// SelectAnnotation 选中 id 并取消其他选中；id 不存在时静默忽略。
func (e *Editor) SelectAnnotation(id int64) {
	if e.index(id) < 0 {
		return
	}
	e.selected = id
}

// Deselect 清空选中状态。
func (e *Editor) Deselect() { e.selected = 0 }

// EditText 原地修改文本；空白文本被拒绝。
func (e *Editor) EditText(id int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("layout: 文本不能为空")
	}
	i := e.index(id)
	if i < 0 {
		return fmt.Errorf("layout: 标注 %d 不存在", id)
	}
	e.items[i].Text = text
	return nil
}

// RemoveAnnotation 删除标注；id 不存在时不报错。删除选中项会同时清空选中。
func (e *Editor) RemoveAnnotation(id int64) {
	i := e.index(id)
	if i < 0 {
		return
	}
	e.items = append(e.items[:i], e.items[i+1:]...)
	if e.selected == id {
		e.selected = 0
	}
}

// SwitchTemplate 把模板编号向前循环一位（5 之后回到 1），返回新编号。
func (e *Editor) SwitchTemplate() int {
	e.template = e.template%TemplateCount + 1
	return e.template
}

// SetTemplate 直接指定模板编号。
func (e *Editor) SetTemplate(n int) error {
	if n < 1 || n > TemplateCount {
		return fmt.Errorf("%w: 模板编号 %d 不在 1..%d 范围内", ErrInvalidRequest, n, TemplateCount)
	}
	e.template = n
	return nil
}

// Template 返回当前模板编号（从 1 开始）。
func (e *Editor) Template() int { return e.template }

// Selected 返回当前选中的 id。
func (e *Editor) Selected() (int64, bool) {
	return e.selected, e.selected != 0
}

// Annotation 返回指定 id 的标注副本。
func (e *Editor) Annotation(id int64) (Annotation, bool) {
	i := e.index(id)
	if i < 0 {
		return Annotation{}, false
	}
	a := e.items[i]
	a.Selected = a.ID == e.selected
	return a, true
}

// Annotations 按插入顺序返回全部标注的副本，Selected 由编辑器的选中 id 推导。
func (e *Editor) Annotations() []Annotation {
	out := make([]Annotation, len(e.items))
	for i, a := range e.items {
		a.Selected = a.ID == e.selected
		out[i] = a
	}
	return out
}

// Len 返回标注数量。
func (e *Editor) Len() int { return len(e.items) }

// Request 把编辑器快照为服务端渲染请求，坐标保持在显示坐标系。
func (e *Editor) Request() Request {
	boxes := make([]TextBox, len(e.items))
	for i, a := range e.items {
		boxes[i] = TextBox{
			Text:     a.Text,
			X:        a.X,
			Y:        a.Y,
			Width:    a.Width,
			Height:   a.Height,
			FontSize: a.FontSize,
		}
	}
	return Request{MemeNumber: e.template, TextBoxes: boxes}
}

func (e *Editor) index(id int64) int {
	if id == 0 {
		return -1
	}
	for i := range e.items {
		if e.items[i].ID == id {
			return i
		}
	}
	return -1
}

// ClampFontSize 把字号裁剪到允许范围；NaN 视为默认字号。
func ClampFontSize(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultFontSize
	}
	return math.Min(math.Max(v, MinFontSize), MaxFontSize)
}

func floorSize(v, min float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	return v
}
