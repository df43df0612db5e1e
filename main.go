package main

import (
	_ "github.com/joho/godotenv/autoload"
	"github.com/jopdorp/timberframe/cmd"
)

func main() {
	cmd.Execute()
}
