package main

import (
	"os"

	"github.com/schmitthub/testdb/internal/testdb"
)

func main() {
	os.Exit(testdb.Main())
}
