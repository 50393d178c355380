package cmd

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/docsman/internal/config"
)

// serveFlagBindings maps serve flag names to config keys.
var serveFlagBindings = map[string]string{
	"port":       config.KeyPort,
	"host":       config.KeyHost,
	"autoreload": config.KeyAutoReload,
	"legend":     config.KeyLegend,
}

// addServeFlags registers the server flags on cmd. Both the root command and
// serve carry them so that "docsman <path> -p 3000" works.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	cmd.Flags().String("host", config.DefaultHost, "Host to bind to (IP address or localhost)")
	cmd.Flags().Bool("autoreload", true, "Watch the root and live-reload open pages")
	cmd.Flags().Bool("legend", true, "Show the navigation legend")

	AddFlagValidation(cmd, "port", ValidatePort)
	AddFlagValidation(cmd, "host", ValidateHost)
}

// bindServeFlags binds the flags of the command being run. Binding happens
// at run time because the same keys are registered on two commands.
func bindServeFlags(cmd *cobra.Command, _ []string) error {
	for flagName, key := range serveFlagBindings {
		if flag := cmd.Flags().Lookup(flagName); flag != nil {
			if err := viper.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", flagName, err)
			}
		}
	}
	return nil
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort accepts 1-65535.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	return nil
}

// ValidateHost accepts IP literals and localhost.
func ValidateHost(host string) error {
	if host == "localhost" || net.ParseIP(host) != nil {
		return nil
	}
	return fmt.Errorf("invalid host %q: must be an IP address or localhost", host)
}

// ValidateOutputFormat checks -o values.
func ValidateOutputFormat(formats ...string) func(string) error {
	return func(value string) error {
		for _, f := range formats {
			if value == f {
				return nil
			}
		}
		return fmt.Errorf("unsupported format: %s (supported: %v)", value, formats)
	}
}
