/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore

import (
	"os"
	"path/filepath"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/config"
	"github.com/suparena/objectstore/datastore"
	"github.com/suparena/objectstore/errors"
	"github.com/suparena/objectstore/storagemodels"
)

// EnvPrefix is the prefix of the environment variables read by LoadConfig.
const EnvPrefix = "OBJECTS_FILE_"

// Config locates the files of a source.
type Config struct {
	Root   string `env:"ROOT" envDefault:"."`
	Format string `env:"FORMAT" envDefault:"xml"`
}

// LoadConfig reads Config from OBJECTS_FILE_ROOT and OBJECTS_FILE_FORMAT.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParsePrefixed(&cfg, EnvPrefix); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Open validates the configuration and creates the root directory if needed.
func (c Config) Open() (*Root, error) {
	if c.Root == "" {
		return nil, errors.NewConfigurationError("root", "root directory is required", nil)
	}
	codec, err := CodecFor(c.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.Root, 0o755); err != nil {
		return nil, errors.NewConfigurationError("root", "create root directory", err)
	}
	return NewRoot(c.Root, codec), nil
}

// Root is a directory holding one file per entity class.
type Root struct {
	dir   string
	codec Codec
}

// NewRoot creates a root over dir using codec for every file.
func NewRoot(dir string, codec Codec) *Root {
	return &Root{dir: dir, codec: codec}
}

func (r *Root) Dir() string { return r.dir }

func (r *Root) Codec() Codec { return r.codec }

// FileFor returns the path of the file storing class.
func (r *Root) FileFor(class string) string {
	return filepath.Join(r.dir, class+"."+r.codec.Format())
}

// Attach registers class E on src with a file driver under root. The file is
// named after the manager's class name. When opts enable the cache, the file
// is read into it as the source starts.
func Attach[E storagemodels.Identifiable](src *objectstore.Source, root *Root, mapper Mapper[E], opts ...objectstore.ManagerOption) (*objectstore.Manager[E], *Driver[E], error) {
	all := append([]objectstore.ManagerOption{objectstore.WithPreload()}, opts...)
	m, err := objectstore.Register[E](src, all...)
	if err != nil {
		return nil, nil, err
	}

	driver := NewDriver[E](root.FileFor(m.Class()), root.Codec(), mapper)
	m.SetDriver(datastore.WithDefaults[E](driver))
	return m, driver, nil
}
