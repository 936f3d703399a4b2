package main

import "invita_backend/internal/app"

func main() {
	app.Run()
}
