package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/kjk/storage/jsonstore"
	"github.com/kjk/storage/log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

// errFailed is returned when a store operation returns false
var errFailed = errors.New("operation failed")

type app struct {
	file    string
	pretty  bool
	strict  bool
	verbose bool
	logDir  string
	envFile string
}

func (a *app) open() (*jsonstore.Store, error) {
	if a.file == "" {
		return nil, errors.New("--file is required")
	}
	return jsonstore.OpenWithOptions(a.file, &jsonstore.Options{
		Pretty: a.pretty,
		Strict: a.strict,
	})
}

// check converts result of a store operation to an error
func check(st *jsonstore.Store, ok bool) error {
	if ok {
		return nil
	}
	if err := st.Err(); err != nil {
		return err
	}
	return errFailed
}

// parseValue parses s as JSON, falling back to a plain string so that
// `set name John` works without quoting
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func printJSON(w io.Writer, v any, indent bool) error {
	d, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if indent {
		// Pretty ends the output with a newline
		d = pretty.Pretty(d)
	} else {
		d = append(d, '\n')
	}
	_, err = w.Write(d)
	return err
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "jsonstore",
		Short:         "Read and modify a key-value store kept in a JSON file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// logs go to stderr so that stdout only has command output
			log.Output = cmd.ErrOrStderr()
			log.Verbose = a.verbose
			if a.logDir != "" {
				log.Init(&log.Config{Dir: a.logDir})
			}
			if a.envFile != "" {
				err := godotenv.Load(a.envFile)
				log.IfErrf(err, "failed to load '%s': %s", a.envFile, err)
			} else {
				// .env is optional
				_ = godotenv.Load()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.file, "file", "f", os.Getenv("JSONSTORE_FILE"), "path of the store file (default $JSONSTORE_FILE)")
	flags.BoolVar(&a.pretty, "pretty", false, "save and print indented JSON")
	flags.BoolVar(&a.strict, "strict", false, "fail if the store file is not valid JSON")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	flags.StringVar(&a.logDir, "log-dir", "", "if set, write logs and events to this directory")
	flags.StringVar(&a.envFile, "env", "", "load environment variables from this file (default .env if exists)")

	root.AddCommand(
		newInitCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newUpdateCmd(a),
		newHasCmd(a),
		newRemoveCmd(a),
		newClearCmd(a),
		newDeleteCmd(a),
		newAllCmd(a),
		newKeysCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
		newDiffCmd(a),
		newWatchCmd(a),
	)
	return root
}
