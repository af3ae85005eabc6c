package main

import (
	"github.com/novaluna/payment-engine/internal/server"
)

func main() {
	server.Init()
}
