package main

import (
	"log"

	"github.com/ayr-records/recordsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
