// SPDX-License-Identifier: MPL-2.0

// Command flowrun runs templated shell commands the way the workflow
// engine's job runner does: formatted against bindings, wrapped by the
// environment activation chain, and executed through the configured
// interpreter.
package main

func main() {
	Execute()
}
