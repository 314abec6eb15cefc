// Package main is the entry point for the VM reconciliation tool.
package main

import "vm-reconcile/cmd/vmrecon/cmd"

func main() {
	cmd.Execute()
}
