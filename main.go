package main

import "github.com/restql/sql-data-api/cmd"

func main() {
	cmd.Execute()
}
