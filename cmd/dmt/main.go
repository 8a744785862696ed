// Command dmt applies and rolls back versioned SQL migrations.
package main

import "github.com/aqasim81/dmt/internal/cli"

func main() {
	cli.Execute()
}
