package browserscan

import "context"

// noWindows is the fallback WindowLister for platforms without a window
// enumeration implementation. Title scoring is disabled; open-handle
// correlation still runs.
type noWindows struct{}

// NewPlatformWindowLister returns the best WindowLister for this platform.
func NewPlatformWindowLister() WindowLister {
	return noWindows{}
}

func (noWindows) Titles(ctx context.Context, pid int) ([]string, error) {
	return nil, nil
}
