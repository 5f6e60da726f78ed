package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kjk/storage/u"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty store file if it doesn't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.file == "" {
				return fmt.Errorf("--file is required")
			}
			if u.FileExists(a.file) {
				_, err := a.open()
				return err
			}
			if err := u.TouchFile(a.file); err != nil {
				return err
			}
			st, err := a.open()
			if err != nil {
				return err
			}
			// an empty file is a valid store but {} is friendlier to other tools
			ok, err := st.Create(map[string]any{}, a.file)
			if err != nil {
				return err
			}
			return check(st, ok)
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key> [default]",
		Short: "Print value of a key as JSON",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			var v any
			if len(args) > 1 {
				v = st.Get(args[0], parseValue(args[1]))
			} else {
				v = st.Get(args[0])
			}
			return printJSON(cmd.OutOrStdout(), v, a.pretty)
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key. Value is parsed as JSON, if that fails it's a string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			return check(st, st.Set(args[0], parseValue(args[1])))
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <key> <json-object>",
		Short: "Merge fields into an object stored under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, ok := parseValue(args[1]).(map[string]any)
			if !ok {
				return fmt.Errorf("'%s' is not a JSON object", args[1])
			}
			st, err := a.open()
			if err != nil {
				return err
			}
			return check(st, st.Update(args[0], partial))
		},
	}
}

func newHasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "has <key>",
		Short: "Print true if the key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", st.Has(args[0]))
			return nil
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"remove"},
		Short:   "Remove a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			return check(st, st.Remove(args[0]))
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all keys, keeping the file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			return check(st, st.Clear())
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the store file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			return check(st, st.Delete())
		},
	}
}

func newAllCmd(a *app) *cobra.Command {
	format := "json"
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Print all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			all := st.All()
			switch format {
			case "json":
				return printJSON(w, all, a.pretty)
			case "yaml":
				d, err := yaml.Marshal(all)
				if err != nil {
					return err
				}
				_, err = w.Write(d)
				return err
			case "dump":
				// shows Go types, useful to see how values were decoded
				spew.Fdump(w, all)
				return nil
			}
			return fmt.Errorf("unknown format '%s', must be json, yaml or dump", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", format, "json, yaml or dump")
	return cmd
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Print keys, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			for _, k := range st.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the number of keys every time the file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			w := cmd.OutOrStdout()
			err = st.Watch(ctx, func() {
				fmt.Fprintf(w, "%s: %d keys\n", st.Location(), st.Len())
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}
