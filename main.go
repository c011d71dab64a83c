package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		exitOnError(err)
	}
}

func exitOnError(err error) {
	os.Stderr.WriteString("Error: " + err.Error() + "\n")
	os.Exit(1)
}
