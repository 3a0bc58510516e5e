package main

import (
	"github.com/joho/godotenv"

	"github.com/atst-dev/atst/cmd"
)

func main() {
	// Optional .env with webhook/upload credentials; absence is fine.
	_ = godotenv.Load()

	cmd.Execute()
}
