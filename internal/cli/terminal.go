package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/vijay-prabhu/mailcode/internal/resolver"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorGray   = "\033[90m"
)

// Spinner frames for animated progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Terminal provides terminal-aware progress output on stderr, keeping
// stdout clean for results
type Terminal struct {
	IsTerminal   bool
	UseColor     bool
	spinnerIndex int
}

// NewTerminal creates a new Terminal instance
func NewTerminal() *Terminal {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	return &Terminal{
		IsTerminal: isTerminal,
		UseColor:   isTerminal, // Only use color in terminal
	}
}

// ClearLine clears the current line (terminal only)
func (t *Terminal) ClearLine() {
	if t.IsTerminal {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}

// Spinner returns the next spinner frame
func (t *Terminal) Spinner() string {
	if !t.IsTerminal {
		return ""
	}
	frame := spinnerFrames[t.spinnerIndex]
	t.spinnerIndex = (t.spinnerIndex + 1) % len(spinnerFrames)
	return frame
}

// Color wraps text in ANSI color codes (terminal only)
func (t *Terminal) Color(color, text string) string {
	if !t.UseColor {
		return text
	}
	return color + text + ColorReset
}

// StageColor returns the color for a resolution stage
func StageColor(stage resolver.Stage) string {
	switch stage {
	case resolver.StageCheckAllowList, resolver.StageCheckCache:
		return ColorGray
	case resolver.StageEnsureCredential:
		return ColorYellow
	case resolver.StageListCandidates:
		return ColorCyan
	case resolver.StageScanMetadata, resolver.StageFetchFull:
		return ColorBlue
	case resolver.StageClassify:
		return ColorPurple
	case resolver.StageCacheAndReturn:
		return ColorGreen
	default:
		return ColorWhite
	}
}
