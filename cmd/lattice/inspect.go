package main

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var errNotFound = eris.New("no entity stored under key")

func newInspectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <uuid>",
		Short: "Print the components stored for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := uuid.Parse(args[0])
			if err != nil {
				return eris.Wrapf(err, "invalid key %q", args[0])
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			w, err := quietWorld(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			s, err := w.Store()
			if err != nil {
				return err
			}
			bz, ok, err := s.Read(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				return eris.Wrapf(errNotFound, "%s", key)
			}
			var out bytes.Buffer
			if err := json.Indent(&out, bz, "", "  "); err != nil {
				return eris.Wrap(err, "stored data is not valid json")
			}
			out.WriteByte('\n')
			_, err = cmd.OutOrStdout().Write(out.Bytes())
			return err
		},
	}
}
