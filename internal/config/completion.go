package config

import "github.com/spf13/cobra"

// RegisterFlagCompletions attaches value completions to the enum flags.
func RegisterFlagCompletions(cmd *cobra.Command) {
	for _, key := range []string{"output", "dns_transport", "fingerprint_source"} {
		_ = cmd.RegisterFlagCompletionFunc(flagName(key), completeKey(key))
	}
}

func completeKey(key string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return KeyCompletions(key), cobra.ShellCompDirectiveNoFileComp
	}
}

// CompleteOutputFormat provides shell completion candidates for the --output flag.
func CompleteOutputFormat(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeKey("output")(cmd, args, toComplete)
}
