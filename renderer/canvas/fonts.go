package canvasrenderer

import (
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/memegen/fonts"
)

const fallbackSrc = "embed:" + fonts.Regular

// family 返回 src 对应的字体族，按 src 缓存；加载失败时退回内置字体。
func (r *Renderer) family(src string) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[src]; ok {
		return family, nil
	}
	family, err := loadFamily(src)
	if err != nil {
		if src == fallbackSrc {
			return nil, err
		}
		fallback, ok := r.fontFamilies[fallbackSrc]
		if !ok {
			var fbErr error
			fallback, fbErr = loadFamily(fallbackSrc)
			if fbErr != nil {
				return nil, err
			}
			r.fontFamilies[fallbackSrc] = fallback
		}
		r.fontFamilies[src] = fallback
		return fallback, nil
	}
	r.fontFamilies[src] = family
	return family, nil
}

func loadFamily(src string) (*canvas.FontFamily, error) {
	data, err := fonts.Load(src)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily(src)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	return family, nil
}
