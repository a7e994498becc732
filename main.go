package main

import "snapfix/internal/app"

func main() {
	app.Main()
}
