// Package recipeimage renders raster images of game-content recipes from
// declarative page and book templates.
//
// The pipeline has two phases. Planning walks a template document together
// with a pool of parsed recipes and produces an ordered sequence of Action
// values; nothing is drawn yet, but output file names and indices are fixed.
// Execution runs the actions in order, resolving item textures through a
// layered fallback chain and compositing each page into a PNG file in the
// workspace's generated-images directory.
//
// Basic Usage:
//
//	cfg := recipeimage.DefaultConfig()
//	cfg.Workspace = "my-project"
//	cfg.SharedData = "shared-data"
//	cfg.ResourcePack = "my-project/RP"
//	cfg.BehaviorPack = "my-project/BP"
//
//	proj, err := recipeimage.NewProject(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	actions, err := proj.Plan(proj.RecipeFiles())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	runner := recipeimage.NewRunner(proj, nil)
//	if _, err := runner.Run(context.Background(), actions); err != nil {
//	    log.Fatal(err)
//	}
//
// Template Syntax:
//
// Text and image properties accept substitution tokens: $counter.<name>,
// $last_recipe.<field>, $var.<name> (also in ${...} form). Output file
// names accept $last_recipe_name, $last_recipe_namespace and
// $template_name, in plain and ${...} forms.
package recipeimage
