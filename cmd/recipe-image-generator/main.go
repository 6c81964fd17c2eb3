package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/ShapescapeMC/Shapescape-Recipe-Image-Generator/pkg/recipeimage"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, finishing the current image...")
		cancel()
	}()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    "recipe-image-generator",
		Usage:   "Generate recipe images for Minecraft Bedrock projects",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rp",
				Usage: "Path to the project's resource pack",
			},
			&cli.StringFlag{
				Name:  "bp",
				Usage: "Path to the project's behavior pack",
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "Path to the project workspace directory",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Path to the shared data directory (templates, RP, block-images)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log verbosity (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Do not read or update the cached settings",
			},
		},
		Commands: []*cli.Command{
			generateCmd(),
			initCmd(),
			propertiesCmd(),
			templatesCmd(),
		},
	}
}

// buildConfig merges, in increasing priority, the cached settings, the
// environment and the command line flags.
func buildConfig(cmd *cli.Command) *recipeimage.Config {
	config := recipeimage.ConfigFromEnvironment()
	if !cmd.Bool("no-cache") {
		recipeimage.LoadCachedSettings().ApplyTo(config)
	}
	if v := cmd.String("rp"); v != "" {
		config.ResourcePack = v
	}
	if v := cmd.String("bp"); v != "" {
		config.BehaviorPack = v
	}
	if v := cmd.String("workspace"); v != "" {
		config.Workspace = v
	}
	if v := cmd.String("data"); v != "" {
		config.SharedData = v
	}
	if v := cmd.String("log-level"); v != "" {
		config.LogLevel = v
	}
	recipeimage.SetGlobalConfig(config)
	return config
}

func generateCmd() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Render the recipe images of the project",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Name of the template to render, without extension",
			},
			&cli.FloatFlag{
				Name:  "scale",
				Usage: "Global scale multiplier applied to every image",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			config := buildConfig(cmd)
			if v := cmd.String("template"); v != "" {
				config.Template = v
			}
			if v := cmd.Float("scale"); v > 0 {
				config.Scale = v
			}
			project, err := recipeimage.NewProject(config)
			if err != nil {
				return err
			}
			actions, err := project.Plan(project.RecipeFiles())
			if err != nil {
				return err
			}
			runner := recipeimage.NewRunner(project, func(
				runID string, index, total int, outputName string, err error,
			) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "[%d/%d] failed: %v\n", index, total, err)
					return
				}
				fmt.Printf("[%d/%d] %s\n", index, total, outputName)
			})
			rendered, err := runner.Run(ctx, actions)
			if err != nil {
				return err
			}
			fmt.Printf("Rendered %d of %d images\n", rendered, len(actions))
			if !cmd.Bool("no-cache") {
				if err := recipeimage.FromConfig(config).Save(); err != nil {
					recipeimage.Warn("Cannot save settings cache: %v", err)
				}
			}
			return nil
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Seed the workspace with the example files and recipe properties",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			project, err := recipeimage.NewProject(buildConfig(cmd))
			if err != nil {
				return err
			}
			if err := project.InitWorkspace(); err != nil {
				return err
			}
			return project.UpdateRecipeProperties()
		},
	}
}

func propertiesCmd() *cli.Command {
	return &cli.Command{
		Name:  "properties",
		Usage: "Update the recipe property document from the behavior pack",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Also dump the properties to a Markdown listing",
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: "Path to a .lang file used for display names in the Markdown dump",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			project, err := recipeimage.NewProject(buildConfig(cmd))
			if err != nil {
				return err
			}
			if err := project.UpdateRecipeProperties(); err != nil {
				return err
			}
			if !cmd.Bool("markdown") {
				return nil
			}
			var translations map[string]string
			if langPath := cmd.String("lang"); langPath != "" {
				if translations, err = recipeimage.LoadLangFile(langPath); err != nil {
					return err
				}
			}
			target, err := project.DumpRecipeProperties(translations)
			if err != nil {
				return err
			}
			fmt.Printf("Variables dumped to %s\n", target)
			return nil
		},
	}
}

func templatesCmd() *cli.Command {
	return &cli.Command{
		Name:  "templates",
		Usage: "List the templates available to the project",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			project, err := recipeimage.NewProject(buildConfig(cmd))
			if err != nil {
				return err
			}
			for _, name := range project.ListTemplates() {
				fmt.Println(name)
			}
			return nil
		},
	}
}
