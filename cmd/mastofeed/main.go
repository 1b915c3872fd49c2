package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Version is the version of the application, set at build time
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(errorColor).Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
