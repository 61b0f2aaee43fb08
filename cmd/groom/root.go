package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/groom/pkg/groom/config"
)

var (
	cfgFile string

	// configErr holds a config file read failure until a command needs it.
	configErr error

	rootCmd = &cobra.Command{
		Use:   "groom [flags] <root>",
		Short: "Tidy file names across a directory tree",
		Long: `Groom walks a directory tree and applies an action to every file it finds.

The default action strips a substring (" - ") from file names, keeping the
extension. The chown action remaps file ownership instead. A single walker
lists the tree while a pool of workers processes entries as they appear.

Examples:
  groom /data/music                     # Strip " - " from every file name
  groom -v -l /data/music               # Debug logging, follow symlinks
  groom --substring "_copy" ~/Pictures  # Strip a different substring
  groom --dry-run --journal /data       # Log what would change, record the run
  groom --action chown --uid 501:1000 /srv/share
  groom --watch /data/incoming          # Keep processing new files until Ctrl-C
  groom history                         # List journaled runs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGroom,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/groom/config.yaml)")
	pf.BoolP("verbose", "v", false, "debug output")
	pf.BoolP("quiet", "q", false, "no status line, errors only")
	pf.String("log-file", "", "log file path (default: $XDG_STATE_HOME/groom/groom.log)")
	pf.StringP("output", "o", config.DefaultOutput, "summary format: pretty, plain, json, jsonl, yaml, template")

	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("quiet", pf.Lookup("quiet"))
	_ = viper.BindPFlag("logging.path", pf.Lookup("log-file"))
	_ = viper.BindPFlag("output", pf.Lookup("output"))

	// Run flags
	f := rootCmd.Flags()
	f.BoolP("links", "l", false, "follow symlinked directories")
	f.IntP("workers", "w", 0, "worker count (0=auto)")
	f.String("substring", config.DefaultSubstring, "substring removed from file names")
	f.String("action", config.DefaultAction, "per-file action: strip or chown")
	f.BoolP("dry-run", "n", false, "log changes without making them")
	f.Bool("graceful", false, "finish in-flight items on Ctrl-C instead of exiting at once")
	f.Bool("parallel-walk", false, "list the tree with parallel walkers")
	f.Bool("watch", false, "keep running and process newly created files")
	f.Bool("journal", false, "record renames for 'groom history'")
	f.StringSlice("exclude-dir", nil, "directory names to skip (repeatable, globs allowed)")
	f.StringSlice("exclude-file", nil, "file names to skip (repeatable, globs allowed)")
	f.StringSlice("uid", nil, "owner remap for chown, as from:to (repeatable)")
	f.StringSlice("gid", nil, "group remap for chown, as from:to (repeatable)")
	f.StringVar(&templateStr, "template", "", "template for -o template")

	_ = viper.BindPFlag("follow_symlinks", f.Lookup("links"))
	_ = viper.BindPFlag("workers", f.Lookup("workers"))
	_ = viper.BindPFlag("substring", f.Lookup("substring"))
	_ = viper.BindPFlag("action", f.Lookup("action"))
	_ = viper.BindPFlag("dry_run", f.Lookup("dry-run"))
	_ = viper.BindPFlag("graceful", f.Lookup("graceful"))
	_ = viper.BindPFlag("parallel_walk", f.Lookup("parallel-walk"))
	_ = viper.BindPFlag("watch", f.Lookup("watch"))
	_ = viper.BindPFlag("journal.enabled", f.Lookup("journal"))
	_ = viper.BindPFlag("exclude.dirs", f.Lookup("exclude-dir"))
	_ = viper.BindPFlag("exclude.files", f.Lookup("exclude-file"))
	_ = viper.BindPFlag("owner.uids", f.Lookup("uid"))
	_ = viper.BindPFlag("owner.gids", f.Lookup("gid"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	config.Prepare(v, cfgFile)
	configErr = config.ReadFile(v)
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Decode(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
