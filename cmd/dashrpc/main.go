// Command dashrpc calls the test generation backend services from the shell
// and prints the decoded responses as JSON.
package main

func main() {
	execute()
}
