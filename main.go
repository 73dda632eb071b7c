package main

import "gitlab.com/bunkercoin/dashboard_api/cmd"

func main() {
	cmd.Execute()
}
