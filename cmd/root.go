/*
 *     Copyright 2025 The CNAI Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalpb "github.com/modelpack/llmctl/internal/pb"
	"github.com/modelpack/llmctl/pkg/backend"
	"github.com/modelpack/llmctl/pkg/catalog"
	"github.com/modelpack/llmctl/pkg/config"
)

var rootConfig *config.Root
var logFile *os.File

// debugMode is set by commands running in debug mode to print the full error chain.
var debugMode bool

// rootCmd represents the llmctl command.
var rootCmd = &cobra.Command{
	Use:                "llmctl",
	Short:              "A command line tool for packaging LLMs into model archives and serving them with TorchServe",
	Args:               cobra.MaximumNArgs(1),
	DisableAutoGenTag:  true,
	SilenceUsage:       true,
	SilenceErrors:      true,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootConfig.Validate(); err != nil {
			return err
		}

		// Start pprof server if enabled.
		if rootConfig.Pprof {
			go func() {
				err := http.ListenAndServe(rootConfig.PprofAddr, nil)
				if err != nil {
					log.Fatal(err)
				}
			}()
		}

		// Ensure log directory exists.
		if err := os.MkdirAll(rootConfig.LogDir, 0755); err != nil {
			return err
		}

		// Ensure log file exists.
		var err error
		logFile, err = os.OpenFile(filepath.Join(rootConfig.LogDir, "llmctl.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}

		logLevel, err := logrus.ParseLevel(rootConfig.LogLevel)
		if err != nil {
			return err
		}

		logrus.SetOutput(logFile)
		logrus.SetLevel(logLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})

		internalpb.SetDisableProgress(rootConfig.DisableProgress)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != nil {
			return logFile.Close()
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// An interrupt cancels the command context so staging directories and a started
// server are cleaned up before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError prints the diagnostic of a failed command, with every wrapped
// cause in debug mode.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "## Error: %v\n", err)
	if !debugMode {
		return
	}

	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(os.Stderr, "   caused by: %v\n", cause)
	}
}

// loadCatalog loads the catalog given by --catalog, or the embedded catalog
// resolved against the working directory.
func loadCatalog() (*catalog.Catalog, error) {
	if rootConfig.Catalog != "" {
		return catalog.Load(rootConfig.Catalog)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	return catalog.Default(wd)
}

// newBackend creates the backend over the configured catalog.
func newBackend() (backend.Backend, *catalog.Catalog, error) {
	c, err := loadCatalog()
	if err != nil {
		return nil, nil, err
	}

	b, err := backend.New(c, backend.WithCacheDir(rootConfig.CacheDir))
	if err != nil {
		return nil, nil, err
	}

	return b, c, nil
}

func init() {
	var err error
	rootConfig, err = config.NewRoot()
	if err != nil {
		panic(err)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfig.Catalog, "catalog", rootConfig.Catalog, "specify the model catalog file (.json, .yaml or .toml), handlers and server config are resolved next to it, defaults to the embedded catalog")
	flags.BoolVar(&rootConfig.Pprof, "pprof", rootConfig.Pprof, "enable pprof")
	flags.StringVar(&rootConfig.PprofAddr, "pprof-addr", rootConfig.PprofAddr, "specify the address for pprof")
	flags.BoolVar(&rootConfig.DisableProgress, "no-progress", rootConfig.DisableProgress, "disable progress bar")
	flags.StringVar(&rootConfig.LogDir, "log-dir", rootConfig.LogDir, "specify the log directory for llmctl")
	flags.StringVar(&rootConfig.CacheDir, "cache-dir", rootConfig.CacheDir, "specify the directory for cached hub file listings, empty disables the cache")
	flags.StringVar(&rootConfig.LogLevel, "log-level", rootConfig.LogLevel, "specify the log level for llmctl")

	// Bind common flags.
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	// Add sub command.
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
	rootCmd.AddCommand(inferCmd)
}
