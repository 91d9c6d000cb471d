package main

import (
	"github.com/isaacphi/promptwheel/internal/ui/cli"
)

func main() {
	cli.Execute()
}
