package server

import "embed"

//go:embed web/templates/*.html web/static/*
var webFiles embed.FS
