package main

import (
	"log"

	"ProductOrderSaga/config"
	"ProductOrderSaga/internal/app"
)

func main() {
	cfg, err := config.New("order-service")
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}
	if err := app.RunOrder(cfg); err != nil {
		log.Fatalf("order-service: %s", err)
	}
}
