package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner with the current version
func PrintBanner() {
	banner.PrintSimple("Invoicer", GetVersion())
}
