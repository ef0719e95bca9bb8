package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const statusLabelWidth = 14

func renderStatusLine(label, value string, colorize, ok bool) string {
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", value)
	if !colorize {
		return line
	}
	color := ansiGreen
	if !ok {
		color = ansiRed
	}
	return color + line + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
