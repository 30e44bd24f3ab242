// Command idintake serves the document verification API and runs the
// document pipeline headlessly from the command line.
package main

func main() {
	Execute()
}
