// Command kiln bakes projects from templates.
package main

func main() {
	Execute()
}
