package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "pegc"

// bindEnvironment fills the flags that weren't given on the command
// line from PEGC_* environment variables and then from the config
// file.  The `set` map of the config file is returned so it can be
// applied to the compiler settings.
func bindEnvironment(cmd *cobra.Command, configFile string) (map[string]string, error) {
	// setting names have dots, keep them out of viper's key paths
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("can't read config file: %w", err)
		}
	}

	var errs []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "set" || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}
		if err := setFlag(cmd.Flags(), f, v.Get(f.Name)); err != nil {
			errs = append(errs, err.Error())
		}
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("error mapping environment variables to command flags: %s", strings.Join(errs, "; "))
	}
	return v.GetStringMapString("set"), nil
}

// setFlag assigns a value coming from viper, which holds lists for
// list flags read from config files
func setFlag(flags *pflag.FlagSet, f *pflag.Flag, val any) error {
	items, ok := val.([]any)
	if !ok {
		return flags.Set(f.Name, fmt.Sprintf("%v", val))
	}
	for _, item := range items {
		if err := flags.Set(f.Name, fmt.Sprintf("%v", item)); err != nil {
			return err
		}
	}
	return nil
}
