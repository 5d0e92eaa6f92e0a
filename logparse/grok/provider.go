// SPDX-License-Identifier: MIT

package grok

import (
	"embed"
	"io"
	"io/fs"
)

// Dictionary names shipped with the package.
const (
	BaseDictionary           = "grok-patterns"
	JavaDictionary           = "java"
	ApacheErrorLogDictionary = "apache-errorlog"
	Log4jDictionary          = "log4j"
	InlineDictionary         = "inline"
)

//go:embed patterns
var builtin embed.FS

// Provider opens pattern dictionaries by name.
type Provider interface {
	Open(name string) (io.ReadCloser, error)
}

// FSProvider serves dictionaries from the root of a file system.
type FSProvider struct {
	FS fs.FS
}

// Open implements Provider.
func (p FSProvider) Open(name string) (io.ReadCloser, error) {
	return p.FS.Open(name)
}

// Builtin returns the provider for the dictionaries compiled into the binary.
func Builtin() Provider {
	sub, err := fs.Sub(builtin, "patterns")
	if err != nil {
		panic(err)
	}
	return FSProvider{FS: sub}
}
