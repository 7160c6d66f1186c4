package capture

// Viewport describes one emulated device size.
type Viewport struct {
	Name   string
	Width  int64
	Height int64
}

// Viewports are captured in this order, each on a fresh tab.
var Viewports = []Viewport{
	{Name: "desktop", Width: 1920, Height: 1080},
	{Name: "tablet", Width: 768, Height: 1024},
	{Name: "mobile", Width: 375, Height: 667},
}

// preferenceOrder is the fixed viewport preference used when downstream
// consumers (the vision critique) need a single screenshot.
var preferenceOrder = []string{"desktop", "tablet", "mobile"}

// PreferredScreenshot selects a screenshot reference by viewport preference:
// desktop > tablet > mobile > first available. Returns ok=false when the map
// is empty.
func PreferredScreenshot(screenshots map[string]string) (viewport, ref string, ok bool) {
	for _, name := range preferenceOrder {
		if r, present := screenshots[name]; present {
			return name, r, true
		}
	}
	for name, r := range screenshots {
		return name, r, true
	}
	return "", "", false
}
