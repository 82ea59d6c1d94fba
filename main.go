package main

import (
	"log"

	"github.com/thiagokokada/gitdesk/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("gitdesk: %v", err)
	}
}
