// Package main is the entry point for zabbix-maintenance.
package main

import (
	"os"
)

func main() {
	os.Exit(exitCode(Execute()))
}
