package web

import (
	"embed"
	"io/fs"
)

//go:embed shell/*
var shellFS embed.FS

// Shell returns the static shell served at the site root: index.html,
// manifest.json and the notification icons.
func Shell() fs.FS {
	sub, err := fs.Sub(shellFS, "shell")
	if err != nil {
		panic(err)
	}
	return sub
}
