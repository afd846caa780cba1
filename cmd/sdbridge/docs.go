package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/sdbridge/docs.go -o docs`.
//
// @title           sdbridge API
// @version         1.0
// @description     HTTP API for a supervised local Stable Diffusion server and cloud image backends.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
