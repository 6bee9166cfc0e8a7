// gesturectl is a command-line client for the gesture hub.
package main

func main() {
	Execute()
}
