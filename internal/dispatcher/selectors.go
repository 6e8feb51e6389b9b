package dispatcher

// Toggle 一个可切换控件（点赞、收藏）的定位方式。
// 先查 Primary，找不到时在 Item 列表中找包含 Icon 的那一项。
type Toggle struct {
	Primary       string
	PrimaryActive string
	Item          string
	Icon          string
	ItemActive    string
}

// Selectors 页面结构定义
type Selectors struct {
	Like            Toggle
	Favorite        Toggle
	ImageContainers string
	Image           string
}

// DefaultSelectors 返回当前站点两代页面结构的选择器
func DefaultSelectors() Selectors {
	return Selectors{
		Like: Toggle{
			Primary:       ".side-toolbar__action.like",
			PrimaryActive: "is-active",
			Item:          ".toolbar-item",
			Icon:          ".icon-like_p",
			ItemActive:    "toolbar-on",
		},
		Favorite: Toggle{
			Primary:       ".side-toolbar__action.favorite",
			PrimaryActive: "is-active",
			Item:          ".toolbar-item",
			Icon:          ".icon-collect_p",
			ItemActive:    "toolbar-on",
		},
		ImageContainers: ".opus-module-top, .opus-module-content, .opus-paragraph-children, .article-content",
		Image:           "img",
	}
}
