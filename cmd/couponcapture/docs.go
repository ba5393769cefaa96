package main

//go:generate swag init -g cmd/couponcapture/main.go -o docs

// @title           Coupon Capture API
// @version         0.1.0
// @description     Coupon capture runs, scheduler control, settings and catalog moderation.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
