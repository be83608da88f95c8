package main

import (
	"fmt"
	"os"

	"github.com/highroller/derby/internal/config"
	"github.com/highroller/derby/internal/fileutil"
)

// ConfigCmd groups configuration helpers.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write the default configuration file"`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration"`
}

// ConfigInitCmd seeds a config file with the built-in defaults.
type ConfigInitCmd struct {
	Path  string `kong:"arg,optional,default='derby.hcl',help='Destination file'"`
	Force bool   `kong:"help='Overwrite an existing file'"`
}

func (c *ConfigInitCmd) Run() error {
	if !c.Force {
		if _, err := os.Stat(c.Path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path)
		}
	}
	if err := fileutil.WriteFileAtomic(c.Path, config.Default().Render(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Path, err)
	}
	fmt.Printf("wrote %s\n", c.Path)
	return nil
}

// ConfigShowCmd prints the configuration after file overlay, so operators can
// verify what the engine will actually run with.
type ConfigShowCmd struct {
	Config string `kong:"help='HCL config file'"`
}

func (c *ConfigShowCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	os.Stdout.Write(cfg.Render())
	return nil
}
