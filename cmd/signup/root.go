package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"signup/internal/platform/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "signup",
	Short: "Registration submission pipeline",
	Long: `signup accepts registration and supplemental-information forms, commits them
to the authoritative store and mirrors a best-effort copy to an analytics sink.`,
	SilenceUsage: true,
}

func init() {
	// serve is the default command; assigned here because runServe reads
	// rootCmd.Version.
	rootCmd.RunE = runServe

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("addr", "", "listen address (default :8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// loadConfig resolves defaults, the config file, SIGNUP_* variables and
// flags, in increasing precedence.
func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper(), cfgFile)
}
