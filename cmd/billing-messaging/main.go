package main

import "github.com/illmade-knight/go-billing/cmd/billing-messaging/cmd"

func main() {
	cmd.Execute()
}
