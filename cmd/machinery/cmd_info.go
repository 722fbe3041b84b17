package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/efrecon/machinery/pkg/environment"
	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/types"
)

var envForce bool

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the cluster's discovery environment variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		if envForce {
			for _, m := range e.cluster.Machines {
				if err := e.refreshDiscovery(ctx, m); err != nil {
					log.WithMachine(m.Spec.Name).Warn().Err(err).Msg("discovery refresh failed")
				}
			}
		}

		vars, err := environment.ReadFile(e.Discovery.Path)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s=%s\n", k, vars[k])
		}
		return nil
	},
}

func init() {
	envCmd.Flags().BoolVar(&envForce, "force", false, "Refresh the discovery cache for every machine before printing")
}

var sshCmd = &cobra.Command{
	Use:   "ssh NAME [CMD...]",
	Short: "Run a command over SSH on one machine",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		m, err := e.Find(args[0])
		if err != nil {
			return err
		}
		lines, err := e.Lifecycle.SSH(ctx, m.Spec.Name, args[1:])
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

var psCmd = &cobra.Command{
	Use:   "ps [NAME...]",
	Short: "List containers on one or more machines (all, if none named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		targets, err := e.resolveNames(args)
		if err != nil {
			return err
		}
		for _, name := range targets {
			rows, err := e.Lifecycle.Ps(ctx, e.Endpoint(name))
			if err != nil {
				fmt.Printf("%s: %v\n", name, err)
				continue
			}
			for _, row := range rows {
				fmt.Printf("%s: %v\n", name, row)
			}
		}
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List every machine and its bound state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		for _, m := range e.cluster.Machines {
			state := types.StateUnknown
			var url string
			var active bool
			if m.State != nil {
				state, url, active = m.State.State, m.State.URL, m.State.Active
			}
			fmt.Printf("%-24s %-10s %-28s active=%v\n", m.Spec.Name, state, url, active)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search PATTERN...",
	Short: "Search machine names, aliases, labels, and image references",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		for _, m := range e.cluster.Machines {
			if machineMatchesAny(m, args) {
				fmt.Println(m.Spec.Name)
			}
		}
		return nil
	},
}

func machineMatchesAny(m *types.Machine, patterns []string) bool {
	for _, p := range patterns {
		if machineMatches(m, p) {
			return true
		}
	}
	return false
}

func machineMatches(m *types.Machine, pattern string) bool {
	if globOrSubstring(pattern, m.Spec.Name) || globOrSubstring(pattern, m.Spec.ShortName) {
		return true
	}
	for _, alias := range m.Spec.Aliases {
		if globOrSubstring(pattern, alias) {
			return true
		}
	}
	for k, v := range m.Spec.Labels {
		if globOrSubstring(pattern, k+"="+v) {
			return true
		}
	}
	for _, image := range m.Spec.Images {
		if globOrSubstring(pattern, image) {
			return true
		}
	}
	return false
}

func globOrSubstring(pattern, value string) bool {
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := filepath.Match(pattern, value)
		return err == nil && ok
	}
	return strings.Contains(value, pattern)
}

var forallRestrict string

var forallCmd = &cobra.Command{
	Use:   "forall [PATTERN] -- CMD [ARGS...]",
	Short: "Run a command over SSH on every machine matching a name pattern",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}

		var pattern string
		command := args
		if dash := cmd.ArgsLenAtDash(); dash > 0 {
			pattern = args[0]
			command = args[dash:]
		}
		if len(command) == 0 {
			return fmt.Errorf("%w: forall requires a command after --", ErrInvariant)
		}

		for _, m := range e.cluster.Machines {
			if forallRestrict != "" && !strings.HasPrefix(m.Spec.Name, forallRestrict) {
				continue
			}
			if pattern != "" && !globOrSubstring(pattern, m.Spec.Name) {
				continue
			}
			lines, err := e.Lifecycle.SSH(ctx, m.Spec.Name, command)
			if err != nil {
				fmt.Printf("%s: %v\n", m.Spec.Name, err)
				continue
			}
			for _, line := range lines {
				fmt.Printf("%s: %s\n", m.Spec.Name, line)
			}
		}
		return nil
	},
}

func init() {
	forallCmd.Flags().StringVar(&forallRestrict, "restrict", "", "Only run on machines whose name has this prefix")
}
