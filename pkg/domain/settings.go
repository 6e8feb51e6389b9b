package domain

// ImageAction 图片处理方式
type ImageAction string

const (
	ImageActionDownload ImageAction = "download"
	// ImageActionOpenTab 历史取值，执行时归一为 ImageActionOpen
	ImageActionOpenTab ImageAction = "open-tab"
	ImageActionOpen    ImageAction = "open"
	ImageActionNone    ImageAction = "none"
	// imageActionDisabled 旧版本存储中出现过的取值，等价于 none
	imageActionDisabled ImageAction = "disabled"
)

// Normalize 将别名归一为执行时使用的取值
func (a ImageAction) Normalize() ImageAction {
	switch a {
	case ImageActionOpenTab, ImageActionOpen:
		return ImageActionOpen
	case ImageActionDownload:
		return ImageActionDownload
	default:
		return ImageActionNone
	}
}

// Valid 判断是否为可持久化的取值
func (a ImageAction) Valid() bool {
	switch a {
	case ImageActionDownload, ImageActionOpenTab, ImageActionOpen, ImageActionNone, imageActionDisabled:
		return true
	}
	return false
}

// Settings 用户偏好
type Settings struct {
	LikeEnabled     bool        `json:"likeEnabled"`
	FavoriteEnabled bool        `json:"favoriteEnabled"`
	ImageEnabled    bool        `json:"imageEnabled"`
	ImageAction     ImageAction `json:"imageAction"`
}

// DefaultSettings 返回首次使用时的偏好
func DefaultSettings() Settings {
	return Settings{
		LikeEnabled:     true,
		FavoriteEnabled: true,
		ImageEnabled:    true,
		ImageAction:     ImageActionDownload,
	}
}

// ExecutionConfig 单次执行使用的配置，由 Settings 推导
type ExecutionConfig struct {
	LikeEnabled     bool        `json:"likeEnabled"`
	FavoriteEnabled bool        `json:"favoriteEnabled"`
	ImageEnabled    bool        `json:"imageEnabled"`
	ImageAction     ImageAction `json:"imageAction"`
}

// NewExecutionConfig 由偏好推导执行配置。
// 图片关闭时 ImageAction 强制为 none，open-tab 归一为 open。
func NewExecutionConfig(s Settings) ExecutionConfig {
	action := s.ImageAction.Normalize()
	if !s.ImageEnabled {
		action = ImageActionNone
	}
	return ExecutionConfig{
		LikeEnabled:     s.LikeEnabled,
		FavoriteEnabled: s.FavoriteEnabled,
		ImageEnabled:    s.ImageEnabled,
		ImageAction:     action,
	}
}

// WantsImages 是否需要提取图片
func (c ExecutionConfig) WantsImages() bool {
	return c.ImageEnabled && c.ImageAction.Normalize() != ImageActionNone
}
