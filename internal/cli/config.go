package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tbckr/domainlens/internal/config"
	"github.com/tbckr/domainlens/internal/doh"
	"github.com/tbckr/domainlens/internal/httpclient"
	"github.com/tbckr/domainlens/internal/output"
	"github.com/tbckr/domainlens/internal/services/fingerprint"
)

func newConfigCmd(d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Read and write domainlens config file values",
		GroupID: "utility",
	}
	cmd.AddCommand(
		newConfigPathCmd(d),
		newConfigShowCmd(d),
		newConfigGetCmd(d),
		newConfigSetCmd(d),
		newConfigUnsetCmd(d),
		newConfigEditCmd(d),
	)
	return cmd
}

func newConfigPathCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), d.cfg.ConfigFile)
			return err
		},
	}
}

// configRows is the effective configuration, sorted by key.
type configRows []configRow

type configRow struct {
	key   string
	value string
}

// buildConfigRows collects every key from the fully resolved d.cfg, so show
// reports defaults, env vars and flag overrides, not just the file.
func buildConfigRows(d *deps) configRows {
	keys := config.ValidKeys()
	rows := make(configRows, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, configRow{key: k, value: effectiveValue(d, k)})
	}
	return rows
}

// MarshalJSON renders the rows as one object keyed by config key.
func (rows configRows) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(rows))
	for _, r := range rows {
		m[r.key] = r.value
	}
	return json.Marshal(m)
}

// WriteText renders one key=value pair per line.
func (rows configRows) WriteText(w io.Writer) error {
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s=%s\n", r.key, r.value); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders a two-column key/value table.
func (rows configRows) WriteTable(w io.Writer) error {
	table := output.NewTable(w, output.TableOptions{MinWidth: 20, Overhead: 30})
	table.Header([]string{"Key", "Value"})
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.key, r.value}
	}
	if err := table.Bulk(cells); err != nil {
		return err
	}
	return table.Render()
}

// effectiveValue returns the current effective value for key from d.cfg.
// Empty settings that fall back to a built-in value report that value. The
// BuiltWith API key is masked.
func effectiveValue(d *deps, key string) string {
	c := d.cfg
	switch key {
	case "verbose":
		return strconv.FormatBool(c.Verbose)
	case "output":
		return c.Output
	case "concurrency":
		return strconv.Itoa(c.Concurrency)
	case "proxy":
		return httpclient.ResolveProxy(c.Proxy)
	case "user_agent":
		return httpclient.ResolveUserAgent(c.UserAgent)
	case "listen":
		return c.Listen
	case "mx_timeout":
		return c.MXTimeout.String()
	case "fingerprint_timeout":
		return c.FingerprintTimeout.String()
	case "cache_ttl":
		return c.CacheTTL.String()
	case "cache_max_entries":
		return strconv.Itoa(c.CacheMaxEntries)
	case "cache_sweep_interval":
		return c.CacheSweepInterval.String()
	case "dns_transport":
		return c.DNSTransport
	case "dns_servers":
		return strings.Join(c.DNSServers, ",")
	case "doh_url":
		return cmp.Or(c.DoHURL, doh.DefaultURL)
	case "fingerprint_source":
		return c.FingerprintSource
	case "builtwith_api_key":
		if c.BuiltWithAPIKey == "" {
			return ""
		}
		return "********"
	case "builtwith_url":
		return cmp.Or(c.BuiltWithURL, fingerprint.DefaultBuiltWithURL)
	case "fingerprint_rps":
		return strconv.FormatFloat(c.FingerprintRPS, 'g', -1, 64)
	case "fingerprint_burst":
		return strconv.Itoa(c.FingerprintBurst)
	case "patterns_file":
		return c.PatternsFile
	case "geoip_database":
		return c.GeoIPDatabase
	default:
		return ""
	}
}

func newConfigShowCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Aliases: []string{"cat"},
		Short:   "Display all effective config settings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeResult(cmd.OutOrStdout(), d, buildConfigRows(d))
		},
	}
}

// completeConfigKey completes the first argument with config keys and, when
// valuesToo is set, the second with the key's enumerated values.
func completeConfigKey(valuesToo bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		switch {
		case len(args) == 0:
			return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
		case len(args) == 1 && valuesToo:
			return config.KeyCompletions(args[0]), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

func newConfigGetCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:               "get <key>",
		Short:             "Print the effective value of a config key",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeConfigKey(false),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := config.NormalizeKey(args[0])
			if err := config.ValidateKey(key); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), effectiveValue(d, key))
			return err
		},
	}
}

func newConfigSetCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value and persist it to the config file",
		Example: `  domainlens config set cache-ttl 30m
  domainlens config set dns_servers 9.9.9.9,149.112.112.112`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeConfigKey(true),
		RunE: func(_ *cobra.Command, args []string) error {
			key := config.NormalizeKey(args[0])
			if err := config.ValidateKey(key); err != nil {
				return err
			}
			value, err := config.ParseValue(key, args[1])
			if err != nil {
				return err
			}
			return updateConfigFile(d.cfg.ConfigFile, func(raw map[string]any) {
				raw[key] = value
			})
		},
	}
}

func newConfigUnsetCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:               "unset <key>",
		Short:             "Remove a key from the config file so its default applies",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeConfigKey(false),
		RunE: func(_ *cobra.Command, args []string) error {
			key := config.NormalizeKey(args[0])
			if err := config.ValidateKey(key); err != nil {
				return err
			}
			return updateConfigFile(d.cfg.ConfigFile, func(raw map[string]any) {
				delete(raw, key)
			})
		},
	}
}

// updateConfigFile applies edit to the keys explicitly present in the file
// at path and writes it back. Defaults and overrides from d.cfg never leak
// into the file.
func updateConfigFile(path string, edit func(raw map[string]any)) error {
	raw := map[string]any{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}

	edit(raw)

	out := []byte{}
	if len(raw) > 0 {
		if out, err = yaml.Marshal(raw); err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func newConfigEditCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the config file in $VISUAL or $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			editor := cmp.Or(os.Getenv("VISUAL"), os.Getenv("EDITOR"), "vi")
			c := exec.CommandContext(cmd.Context(), editor, d.cfg.ConfigFile) //nolint:gosec // editor comes from the user's environment
			c.Stdin = cmd.InOrStdin()
			c.Stdout = cmd.OutOrStdout()
			c.Stderr = cmd.ErrOrStderr()
			if err := c.Run(); err != nil {
				return fmt.Errorf("running %s: %w", editor, err)
			}
			return nil
		},
	}
}
