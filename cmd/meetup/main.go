package main

import "meetup-backend/cmd/server"

func main() {
	server.Init()
	server.Run()
}
