/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/notargets/goflame/restart"
	"github.com/notargets/goflame/steppers"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "goflame",
	Short: "One dimensional reacting flow (flame) simulation driver",
	Long: `
Restart driven solver for a 1D premixed hydrogen/air flame: loads a snapshot
set, advances the reacting Navier-Stokes equations with finite rate chemistry
to a target time, and writes restart, visualization and run quantity output
on the way.

goflame setup -c flame1d --np 2
goflame run -r flame1d-000000-0000.rst --np 2`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(ExitCode(err))
	}
}

/*
ExitCode maps a command error onto the process exit status. Status 3 is a
run that terminated abnormally, by divergence or by stopping short of the
final time. Status 2 is a restart consistency or file problem. Everything
else that failed is a configuration error, status 1.
*/
func ExitCode(err error) int {
	var (
		abnormal *steppers.AbnormalExitError
		diverged *steppers.DivergedError
		mismatch *restart.PartitionMismatchError
		pathErr  *fs.PathError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &abnormal), errors.As(err, &diverged):
		return 3
	case errors.As(err, &mismatch), errors.As(err, &pathErr):
		return 2
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.goflame.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".goflame" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".goflame")
	}

	viper.AutomaticEnv() // read in environment variables if set

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
