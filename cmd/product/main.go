package main

import (
	"log"

	"ProductOrderSaga/config"
	"ProductOrderSaga/internal/app"
)

func main() {
	cfg, err := config.New("product-service")
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}
	if err := app.RunProduct(cfg); err != nil {
		log.Fatalf("product-service: %s", err)
	}
}
