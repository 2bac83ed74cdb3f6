package main

import (
	"github.com/snowberry/order/internal/app"
	"github.com/snowberry/order/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
