package main

import (
	"github.com/charmbracelet/nospawn/internal/cmd"
)

func main() {
	cmd.Execute()
}
