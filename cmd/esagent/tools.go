package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/effective-security/esagent/config"
	"github.com/effective-security/esagent/mcpclient"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var toolsAll bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the MCP server",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsAll, "all", false, "Include tools excluded by the filter policy")
}

type toolInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Excluded    bool   `yaml:"excluded,omitempty"`
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []mcpclient.Option
	if cfg.MCP.DevTunnelAccessToken != "" {
		opts = append(opts, mcpclient.WithTokenSource(mcpclient.StaticTokenSource(cfg.MCP.DevTunnelAccessToken)))
	}
	if cfg.MCP.TimeoutSeconds > 0 {
		opts = append(opts, mcpclient.WithTimeout(time.Duration(cfg.MCP.TimeoutSeconds)*time.Second))
	}
	client := mcpclient.New(cfg.MCP.ServerURL, opts...)
	defer client.Close()

	list, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	policy := cfg.FilterPolicy()
	var out []toolInfo
	for _, d := range list {
		allowed := policy.Allows(d.Name)
		if !allowed && !toolsAll {
			continue
		}
		out = append(out, toolInfo{
			Name:        d.Name,
			Description: d.Description,
			Excluded:    !allowed,
		})
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
