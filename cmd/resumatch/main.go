// Command resumatch runs the résumé checker.
//
//	resumatch serve  [--config file] [--port N]   run the HTTP API
//	resumatch initdb [--config file]              reset the résumé table
//
// All real work lives in internal/; this package only reads configuration,
// builds the external collaborators and hands them to internal/server.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
