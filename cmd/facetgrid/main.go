package main

import "github.com/MeKo-Tech/facetgrid/internal/cmd"

func main() {
	cmd.Execute()
}
