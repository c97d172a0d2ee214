package main

import (
	"github.com/joho/godotenv"

	"github.com/Conceptual-Machines/magda-sequencer/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
