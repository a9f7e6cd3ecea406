package commands

import (
	"fmt"

	"git.home.luguber.info/inful/rsbuild/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(root *CLI) error {
	name := root.Config
	if name == "" {
		name = config.DefaultConfigFile
	}
	return RunInit(config.ResolvePath(root.Root, name), i.Force)
}

func RunInit(configPath string, force bool) error {
	fmt.Println("Initializing Rsbuild project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	fmt.Println("initialized successfully")
	return nil
}
