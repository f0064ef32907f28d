package repository

import (
	"context"
	"os/exec"
	"runtime"
)

// OpenBrowser open url with the desktop's default handler
func OpenBrowser(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// launcher 要活得比 click 的 ctx 久, 不能被 cancel 砍掉
	return browserCommand(runtime.GOOS, url).Start()
}

func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
